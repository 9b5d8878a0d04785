package services

import (
	"fmt"
	"strconv"
	"strings"

	"insulinai-backend/models"
	"insulinai-backend/utils"
)

// Split-bolus rule: both thresholds must be exceeded. Fat alone delays
// absorption less predictably than combined fat+protein meals, so
// low-carb high-fat-only meals are deliberately not flagged.
const (
	splitBolusFatGrams     = 20.0
	splitBolusProteinGrams = 25.0
)

// DoseRecommendation is the computed insulin suggestion for one estimate.
type DoseRecommendation struct {
	SuggestedUnits float64           `json:"suggested_units"`
	Formula        string            `json:"formula"`
	SplitBolus     models.SplitBolus `json:"split_bolus"`
}

// ComputeDose converts a finalized estimate into an insulin suggestion.
// Pure and total for valid input; carbRatio <= 0 is a caller contract
// violation, not a runtime condition.
func ComputeDose(est *models.AnalysisResult, carbRatio float64) DoseRecommendation {
	if carbRatio <= 0 {
		panic(fmt.Sprintf("ComputeDose: carb ratio must be positive, got %v", carbRatio))
	}

	rec := DoseRecommendation{
		SplitBolus: splitBolusAdvice(est.TotalFat, est.TotalProtein),
	}

	if est.MissingInfo != nil {
		// quantity unknown: a computed dose would be misleading
		rec.SuggestedUnits = 0
		rec.Formula = fmt.Sprintf("%sg carbs noted, ratio %s - awaiting user input on quantity before dosing",
			fmtNum(est.TotalCarbs), fmtNum(carbRatio))
		return rec
	}

	rec.SuggestedUnits = utils.Round1(est.TotalCarbs / carbRatio)
	rec.Formula = fmt.Sprintf("%sg carbs ÷ %s = %sU",
		fmtNum(est.TotalCarbs), fmtNum(carbRatio), fmtNum(rec.SuggestedUnits))
	return rec
}

// ApplyDose writes a recommendation back onto the estimate it was computed
// from, keeping any split-bolus reason the AI already phrased.
func ApplyDose(est *models.AnalysisResult, rec DoseRecommendation) {
	est.SuggestedInsulin = rec.SuggestedUnits
	est.CalculationFormula = rec.Formula
	keepReason := est.SplitBolus.Reason
	est.SplitBolus = rec.SplitBolus
	if rec.SplitBolus.Recommended && keepReason != "" {
		est.SplitBolus.Reason = keepReason
	}
}

func splitBolusAdvice(totalFat, totalProtein float64) models.SplitBolus {
	if totalFat > splitBolusFatGrams && totalProtein > splitBolusProteinGrams {
		return models.SplitBolus{
			Recommended:     true,
			SplitPercentage: "50% now / 50% later",
			Duration:        "2-3 hours",
			Reason: fmt.Sprintf("High fat (%sg) and protein (%sg) slow carbohydrate absorption",
				fmtNum(totalFat), fmtNum(totalProtein)),
		}
	}
	return models.SplitBolus{}
}

// CombineEstimates merges chained meal entries into one aggregate estimate.
// Totals are summed and the dose recomputed once on the sums - per-entry
// doses are never added, which would compound their 1-decimal roundings.
// An empty input is a contract violation.
func CombineEstimates(estimates []models.AnalysisResult, carbRatio float64) models.AnalysisResult {
	if len(estimates) == 0 {
		panic("CombineEstimates: empty input")
	}

	combined := models.AnalysisResult{
		ConfidenceLevel: models.ConfidenceHigh,
	}

	var descriptions []string
	seenSources := map[string]bool{}
	for _, est := range estimates {
		descriptions = append(descriptions, est.FriendlyDescription)
		combined.FoodItems = append(combined.FoodItems, est.FoodItems...)
		combined.TotalCarbs += est.TotalCarbs
		combined.TotalFat += est.TotalFat
		combined.TotalProtein += est.TotalProtein
		combined.Warnings = append(combined.Warnings, est.Warnings...)

		for _, src := range est.Sources {
			if !seenSources[src] {
				seenSources[src] = true
				combined.Sources = append(combined.Sources, src)
			}
		}
		if confidenceRank(est.ConfidenceLevel) < confidenceRank(combined.ConfidenceLevel) {
			combined.ConfidenceLevel = est.ConfidenceLevel
		}
		if combined.MissingInfo == nil && est.MissingInfo != nil {
			combined.MissingInfo = est.MissingInfo
		}
	}

	combined.TotalCarbs = utils.Round1(combined.TotalCarbs)
	combined.TotalFat = utils.Round1(combined.TotalFat)
	combined.TotalProtein = utils.Round1(combined.TotalProtein)
	combined.FriendlyDescription = strings.Join(descriptions, " + ")

	// split bolus comes from the combined totals: individually mild items
	// can add up to a split-worthy meal
	ApplyDose(&combined, ComputeDose(&combined, carbRatio))
	return combined
}

func confidenceRank(level string) int {
	switch level {
	case models.ConfidenceLow:
		return 0
	case models.ConfidenceMedium:
		return 1
	default:
		return 2
	}
}

// fmtNum renders a float without trailing zeros so audit formulas read
// "48g carbs ÷ 10 = 4.8U" rather than "48.000000".
func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
