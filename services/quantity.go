package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"insulinai-backend/models"
	"insulinai-backend/utils"
)

// Local quantity parsing for refinement follow-ups ("150g", "3 pieces",
// "half"). Handles the common cases without an AI round-trip; anything it
// cannot read falls through to AI refinement.

var (
	wholeRe    = regexp.MustCompile(`(?i)\b(tutt[oa]|inter[oa]|whole|entire|full)\b`)
	halfRe     = regexp.MustCompile(`(?i)\b(metà|mezz[oa]|half)\b`)
	quarterRe  = regexp.MustCompile(`(?i)\b(quarto|quarter|¼)\b`)
	gramsRe    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:g|gr|grams?|grammi)\b`)
	piecesRe   = regexp.MustCompile(`(?i)(\d+)\s*(?:pezz[io]|pieces?|items?|unità|units?|biscotti|biscuits?|cookies?)`)
	perPieceRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*g\s*(?:per|each|a|/)`)
	bareNumRe  = regexp.MustCompile(`^(\d+(?:\.\d+)?)$`)
	anyWeight  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*g`)
)

// ParseQuantityLocally scales a previous estimate by a user-supplied
// quantity. Returns (nil, false) when the text cannot be read locally.
// The previous estimate's per-item values are treated as per-100g (or
// per-piece when a per-piece weight is recoverable from approx_weight).
func ParseQuantityLocally(text string, previous *models.AnalysisResult, carbRatio float64) (*models.AnalysisResult, bool) {
	input := strings.ToLower(strings.TrimSpace(text))
	if len(previous.FoodItems) == 0 {
		return nil, false
	}
	base := previous.FoodItems[0]

	var multiplier float64
	var description string

	switch {
	case wholeRe.MatchString(input):
		m := anyWeight.FindStringSubmatch(base.ApproxWeight)
		if m == nil {
			return nil, false
		}
		totalG, _ := strconv.ParseFloat(m[1], 64)
		multiplier = totalG / 100
		description = fmt.Sprintf("%sg (whole)", m[1])

	case halfRe.MatchString(input):
		multiplier = 0.5
		description = "half"

	case quarterRe.MatchString(input):
		multiplier = 0.25
		description = "quarter"

	default:
		if m := gramsRe.FindStringSubmatch(input); m != nil {
			grams, _ := strconv.ParseFloat(m[1], 64)
			multiplier = grams / 100
			description = fmt.Sprintf("%sg", m[1])
			break
		}
		if m := piecesRe.FindStringSubmatch(input); m != nil {
			pieces, _ := strconv.Atoi(m[1])
			perPieceG := 100.0
			if pm := perPieceRe.FindStringSubmatch(base.ApproxWeight); pm != nil {
				perPieceG, _ = strconv.ParseFloat(pm[1], 64)
			} else if wm := anyWeight.FindStringSubmatch(base.ApproxWeight); wm != nil {
				perPieceG, _ = strconv.ParseFloat(wm[1], 64)
			}
			totalG := float64(pieces) * perPieceG
			multiplier = totalG / 100
			description = fmt.Sprintf("%d pieces (%sg)", pieces, fmtNum(totalG))
			break
		}
		if m := bareNumRe.FindStringSubmatch(input); m != nil {
			num, _ := strconv.ParseFloat(m[1], 64)
			switch {
			case num > 0 && num <= 50:
				// small numbers read as piece counts
				multiplier = num
				description = fmt.Sprintf("%s pieces", fmtNum(num))
			case num > 50:
				multiplier = num / 100
				description = fmt.Sprintf("%sg", fmtNum(num))
			default:
				return nil, false
			}
			break
		}
		return nil, false
	}

	result := scaleEstimate(previous, multiplier, description)
	ApplyDose(result, ComputeDose(result, carbRatio))
	return result, true
}

// scaleEstimate multiplies every item and total of the previous estimate,
// clearing missing_info since the quantity is now known.
func scaleEstimate(previous *models.AnalysisResult, multiplier float64, description string) *models.AnalysisResult {
	out := *previous
	out.FoodItems = make([]models.FoodItemEstimate, len(previous.FoodItems))
	for i, item := range previous.FoodItems {
		out.FoodItems[i] = models.FoodItemEstimate{
			Name:         item.Name,
			Carbs:        utils.Round1(item.Carbs * multiplier),
			Fat:          utils.Round1(item.Fat * multiplier),
			Protein:      utils.Round1(item.Protein * multiplier),
			ApproxWeight: description,
		}
	}
	out.TotalCarbs = utils.Round1(previous.TotalCarbs * multiplier)
	out.TotalFat = utils.Round1(previous.TotalFat * multiplier)
	out.TotalProtein = utils.Round1(previous.TotalProtein * multiplier)
	out.FriendlyDescription = fmt.Sprintf("%s (%s)", previous.FriendlyDescription, description)
	out.MissingInfo = nil
	out.ConfidenceLevel = models.ConfidenceHigh
	out.Reasoning = []string{fmt.Sprintf("Scaled previous estimate by %s", description)}
	return &out
}
