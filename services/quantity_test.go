package services

import (
	"testing"

	"insulinai-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingEstimate() *models.AnalysisResult {
	question := "How many grams did you eat?"
	return &models.AnalysisResult{
		FriendlyDescription: "Plain crackers",
		FoodItems: []models.FoodItemEstimate{
			{Name: "Crackers", Carbs: 70, Fat: 10, Protein: 9, ApproxWeight: "8g per cracker"},
		},
		TotalCarbs:      70,
		TotalFat:        10,
		TotalProtein:    9,
		ConfidenceLevel: models.ConfidenceMedium,
		MissingInfo:     &question,
	}
}

func TestParseQuantityLocallyGrams(t *testing.T) {
	result, ok := ParseQuantityLocally("150g", pendingEstimate(), 10)

	require.True(t, ok)
	assert.Equal(t, 105.0, result.TotalCarbs)
	assert.Equal(t, 10.5, result.SuggestedInsulin)
	assert.Nil(t, result.MissingInfo)
	assert.Equal(t, models.ConfidenceHigh, result.ConfidenceLevel)
}

func TestParseQuantityLocallyItalianGrams(t *testing.T) {
	result, ok := ParseQuantityLocally("ne ho mangiati 50 grammi", pendingEstimate(), 10)

	require.True(t, ok)
	assert.Equal(t, 35.0, result.TotalCarbs)
	assert.Equal(t, 3.5, result.SuggestedInsulin)
}

func TestParseQuantityLocallyPiecesUsePerPieceWeight(t *testing.T) {
	result, ok := ParseQuantityLocally("5 pieces", pendingEstimate(), 10)

	require.True(t, ok)
	// 5 crackers x 8g = 40g of a per-100g base
	assert.Equal(t, 28.0, result.TotalCarbs)
	assert.Equal(t, 2.8, result.SuggestedInsulin)
}

func TestParseQuantityLocallyHalf(t *testing.T) {
	result, ok := ParseQuantityLocally("half", pendingEstimate(), 10)

	require.True(t, ok)
	assert.Equal(t, 35.0, result.TotalCarbs)
}

func TestParseQuantityLocallyWholePackageNeedsWeight(t *testing.T) {
	est := pendingEstimate()
	est.FoodItems[0].ApproxWeight = "250g package"

	result, ok := ParseQuantityLocally("the whole thing", est, 10)

	require.True(t, ok)
	assert.Equal(t, 175.0, result.TotalCarbs)

	// no recoverable weight -> cannot resolve locally
	est2 := pendingEstimate()
	est2.FoodItems[0].ApproxWeight = "one serving"
	_, ok = ParseQuantityLocally("whole", est2, 10)
	assert.False(t, ok)
}

func TestParseQuantityLocallyBareNumberHeuristic(t *testing.T) {
	// small bare numbers are piece counts
	result, ok := ParseQuantityLocally("3", pendingEstimate(), 10)
	require.True(t, ok)
	assert.Equal(t, 210.0, result.TotalCarbs)

	// large bare numbers are grams
	result, ok = ParseQuantityLocally("120", pendingEstimate(), 10)
	require.True(t, ok)
	assert.Equal(t, 84.0, result.TotalCarbs)
}

func TestParseQuantityLocallyUnreadableFallsThrough(t *testing.T) {
	_, ok := ParseQuantityLocally("it was the big red box from yesterday", pendingEstimate(), 10)
	assert.False(t, ok)
}

func TestParseQuantityLocallyNoItems(t *testing.T) {
	_, ok := ParseQuantityLocally("150g", &models.AnalysisResult{}, 10)
	assert.False(t, ok)
}
