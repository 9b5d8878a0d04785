package utils

import "fmt"

// MaxSingleBolus is the number of units above which a suggestion gets a
// double-check warning attached. It does not block the recommendation.
const MaxSingleBolus = 15.0

// DoseWarnings returns sanity flags for a suggested dose given the user's
// current glucose context. preGlucose may be nil when no reading is linked.
func DoseWarnings(suggestedUnits float64, preGlucose *float64, lowThreshold float64) []string {
	var warnings []string

	if suggestedUnits > MaxSingleBolus {
		warnings = append(warnings, fmt.Sprintf(
			"Suggested dose (%.1fU) is unusually large - double-check the portion before injecting", suggestedUnits))
	}
	if preGlucose != nil && lowThreshold > 0 && *preGlucose < lowThreshold {
		warnings = append(warnings, fmt.Sprintf(
			"Glucose is below your low threshold (%.0f mg/dL) - treat the low before bolusing", *preGlucose))
	}

	return warnings
}
