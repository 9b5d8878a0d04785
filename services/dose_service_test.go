package services

import (
	"testing"

	"insulinai-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func estimateWith(carbs, fat, protein float64) *models.AnalysisResult {
	return &models.AnalysisResult{
		TotalCarbs:   carbs,
		TotalFat:     fat,
		TotalProtein: protein,
	}
}

func TestComputeDoseRoundsToOneDecimal(t *testing.T) {
	rec := ComputeDose(estimateWith(48, 0, 0), 10)

	assert.Equal(t, 4.8, rec.SuggestedUnits)
	assert.Equal(t, "48g carbs ÷ 10 = 4.8U", rec.Formula)
	assert.False(t, rec.SplitBolus.Recommended)
}

func TestComputeDoseRoundsHalfUp(t *testing.T) {
	// 35 / 12 = 2.9166... -> 2.9; 37 / 12 = 3.0833... -> 3.1
	assert.Equal(t, 2.9, ComputeDose(estimateWith(35, 0, 0), 12).SuggestedUnits)
	assert.Equal(t, 3.1, ComputeDose(estimateWith(37, 0, 0), 12).SuggestedUnits)
}

func TestComputeDoseZeroWhenQuantityMissing(t *testing.T) {
	question := "How many pieces did you eat?"
	est := estimateWith(12, 0, 0)
	est.MissingInfo = &question

	rec := ComputeDose(est, 10)

	assert.Zero(t, rec.SuggestedUnits)
	assert.Contains(t, rec.Formula, "awaiting user input")
}

func TestComputeDosePanicsOnNonPositiveRatio(t *testing.T) {
	assert.Panics(t, func() { ComputeDose(estimateWith(30, 0, 0), 0) })
	assert.Panics(t, func() { ComputeDose(estimateWith(30, 0, 0), -5) })
}

func TestSplitBolusRequiresBothThresholds(t *testing.T) {
	cases := []struct {
		name        string
		fat         float64
		protein     float64
		recommended bool
	}{
		{"both above", 30, 35, true},
		{"fat only", 30, 10, false},
		{"protein only", 5, 40, false},
		{"both exactly at threshold", 20, 25, false},
		{"just above threshold", 20.1, 25.1, true},
		{"both below", 8, 10, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ComputeDose(estimateWith(60, tc.fat, tc.protein), 10)
			assert.Equal(t, tc.recommended, rec.SplitBolus.Recommended)
			if tc.recommended {
				assert.Equal(t, "50% now / 50% later", rec.SplitBolus.SplitPercentage)
				assert.Equal(t, "2-3 hours", rec.SplitBolus.Duration)
				assert.NotEmpty(t, rec.SplitBolus.Reason)
			}
		})
	}
}

func TestApplyDoseKeepsExistingSplitReason(t *testing.T) {
	est := estimateWith(60, 30, 35)
	est.SplitBolus.Reason = "Pizza digests slowly"

	ApplyDose(est, ComputeDose(est, 10))

	assert.True(t, est.SplitBolus.Recommended)
	assert.Equal(t, "Pizza digests slowly", est.SplitBolus.Reason)
	assert.Equal(t, 6.0, est.SuggestedInsulin)
}

func TestCombineEstimatesSumsBeforeDosing(t *testing.T) {
	// doses must come from summed carbs, not summed per-entry doses:
	// 17/10 -> 1.7 and 16/10 -> 1.6 each, but 33/10 -> 3.3 not 3.4
	a := models.AnalysisResult{
		FriendlyDescription: "Apple",
		FoodItems:           []models.FoodItemEstimate{{Name: "Apple", Carbs: 17}},
		TotalCarbs:          17,
		Sources:             []string{"database match"},
		ConfidenceLevel:     models.ConfidenceHigh,
	}
	b := models.AnalysisResult{
		FriendlyDescription: "Crackers",
		FoodItems:           []models.FoodItemEstimate{{Name: "Crackers", Carbs: 16}},
		TotalCarbs:          16,
		Sources:             []string{"AI estimate"},
		ConfidenceLevel:     models.ConfidenceMedium,
	}

	combined := CombineEstimates([]models.AnalysisResult{a, b}, 10)

	assert.Equal(t, 33.0, combined.TotalCarbs)
	assert.Equal(t, 3.3, combined.SuggestedInsulin)
	assert.Equal(t, "Apple + Crackers", combined.FriendlyDescription)
	require.Len(t, combined.FoodItems, 2)
	assert.Equal(t, []string{"database match", "AI estimate"}, combined.Sources)
	assert.Equal(t, models.ConfidenceMedium, combined.ConfidenceLevel)
	assert.Nil(t, combined.MissingInfo)
}

func TestCombineEstimatesSplitFromCombinedTotals(t *testing.T) {
	// individually mild entries add up to a split-worthy meal
	a := *estimateWith(40, 15, 20)
	b := *estimateWith(20, 10, 10)

	combined := CombineEstimates([]models.AnalysisResult{a, b}, 10)

	assert.True(t, combined.SplitBolus.Recommended)
	assert.Equal(t, 6.0, combined.SuggestedInsulin)
}

func TestCombineEstimatesCarriesFirstMissingInfo(t *testing.T) {
	question := "How many grams of pasta?"
	a := *estimateWith(15, 0, 0)
	pending := *estimateWith(0, 0, 0)
	pending.MissingInfo = &question

	combined := CombineEstimates([]models.AnalysisResult{a, pending}, 10)

	require.NotNil(t, combined.MissingInfo)
	assert.Equal(t, question, *combined.MissingInfo)
	assert.Zero(t, combined.SuggestedInsulin)
}

func TestCombineEstimatesLowestConfidenceWins(t *testing.T) {
	a := *estimateWith(10, 0, 0)
	a.ConfidenceLevel = models.ConfidenceHigh
	b := *estimateWith(10, 0, 0)
	b.ConfidenceLevel = models.ConfidenceLow
	c := *estimateWith(10, 0, 0)
	c.ConfidenceLevel = models.ConfidenceMedium

	combined := CombineEstimates([]models.AnalysisResult{a, b, c}, 10)

	assert.Equal(t, models.ConfidenceLow, combined.ConfidenceLevel)
}

func TestCombineEstimatesPanicsOnEmpty(t *testing.T) {
	assert.Panics(t, func() { CombineEstimates(nil, 10) })
}

func TestCombineEstimatesSingleEntryIsIdentityOnTotals(t *testing.T) {
	a := *estimateWith(25, 5, 5)
	a.FriendlyDescription = "Toast"

	combined := CombineEstimates([]models.AnalysisResult{a}, 10)

	assert.Equal(t, 25.0, combined.TotalCarbs)
	assert.Equal(t, 2.5, combined.SuggestedInsulin)
	assert.Equal(t, "Toast", combined.FriendlyDescription)
}
