package services

import (
	"fmt"
	"regexp"

	"insulinai-backend/models"
)

// RouteAction is what the pipeline does with the scored candidates.
type RouteAction int

const (
	// ActionDirectMatch answers straight from the top candidate's data.
	ActionDirectMatch RouteAction = iota
	// ActionUseAsContext injects the best candidates into the AI prompt
	// as verified facts.
	ActionUseAsContext
	// ActionDeferToAI asks the AI fresh with no injected context.
	ActionDeferToAI
)

// Decision is the router's verdict for one analysis request.
type Decision struct {
	Action       RouteAction
	Match        *FoodCandidate
	ContextFacts []string
}

// RouterThresholds are the score cut-offs between the three confidence
// tiers. A wrong database match is worse than an AI guess, so the direct
// tier sits well above the context tier.
type RouterThresholds struct {
	Direct  float64 // above this, data is treated as authoritative
	Context float64 // at or above this, candidates season the prompt
	Floor   float64 // minimal score for database-only mode to accept anything
}

func DefaultRouterThresholds() RouterThresholds {
	return RouterThresholds{Direct: 150, Context: 80, Floor: 50}
}

const maxContextCandidates = 3

var barcodePattern = regexp.MustCompile(`^\d{8,14}$`)

// IsBarcode reports whether the query looks like an EAN/UPC code.
func IsBarcode(query string) bool {
	return barcodePattern.MatchString(query)
}

// RouteCandidates classifies the top-scored candidate into a confidence
// tier. In database-only mode a best score at or below the floor fails with
// ErrNoMatchFound; the caller must never fall back to AI in that mode.
func RouteCandidates(scored []ScoredCandidate, mode string, t RouterThresholds) (Decision, error) {
	if len(scored) == 0 {
		if mode == models.ModeDatabaseOnly {
			return Decision{}, ErrNoMatchFound
		}
		return Decision{Action: ActionDeferToAI}, nil
	}

	best := scored[0]

	if mode == models.ModeDatabaseOnly && best.Score <= t.Floor {
		return Decision{}, ErrNoMatchFound
	}
	if (mode == models.ModeDatabaseOnly || best.Score > t.Direct) && best.Score > t.Floor {
		match := best.Candidate
		return Decision{Action: ActionDirectMatch, Match: &match}, nil
	}
	if best.Score >= t.Context {
		var facts []string
		for _, sc := range scored {
			if sc.Score < t.Context || len(facts) == maxContextCandidates {
				break
			}
			facts = append(facts, candidateFact(sc.Candidate))
		}
		return Decision{Action: ActionUseAsContext, ContextFacts: facts}, nil
	}

	return Decision{Action: ActionDeferToAI}, nil
}

// candidateFact renders one candidate as a compact nutrient summary line
// suitable for prompt injection.
func candidateFact(c FoodCandidate) string {
	label := c.Name
	if c.Brand != "" {
		label = fmt.Sprintf("%s (%s)", c.Name, c.Brand)
	}
	return fmt.Sprintf("%s: %.1fg carbs / %.1fg fat / %.1fg protein per 100g",
		label, c.CarbsPer100g, c.FatPer100g, c.ProteinPer100g)
}
