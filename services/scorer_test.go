package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreCandidatesGenericBeatsFlavoredVariant(t *testing.T) {
	candidates := []FoodCandidate{
		{Name: "Banana Yogurt", Brand: "DairyCo", CarbsPer100g: 13},
		{Name: "Banana", CarbsPer100g: 23},
		{Name: "Banana Smoothie Mix", Brand: "BlendIt", CarbsPer100g: 40},
	}

	scored := ScoreCandidates("banana", candidates, DefaultScoringWeights())

	require.Len(t, scored, 3)
	assert.Equal(t, "Banana", scored[0].Candidate.Name)
	assert.Greater(t, scored[0].Score, scored[1].Score)
}

func TestScoreCandidatesExactMatchStacksWithPrefixAndSubstring(t *testing.T) {
	w := DefaultScoringWeights()
	scored := ScoreCandidates("rice", []FoodCandidate{{Name: "Rice", CarbsPer100g: 28}}, w)

	require.Len(t, scored, 1)
	// exact also prefixes and contains, plus generic bonus minus length penalty
	expected := w.ExactMatch + w.PrefixMatch + w.SubstringMatch + w.GenericBonus - 4/w.LengthPenaltyDivisor
	assert.InDelta(t, expected, scored[0].Score, 0.001)
}

func TestScoreCandidatesBrandMatch(t *testing.T) {
	candidates := []FoodCandidate{
		{Name: "Chocolate Hazelnut Spread", Brand: "Ferrero", CarbsPer100g: 57},
		{Name: "Chocolate Hazelnut Spread", Brand: "Other", CarbsPer100g: 55},
	}

	scored := ScoreCandidates("nutella ferrero", candidates, DefaultScoringWeights())

	require.Len(t, scored, 2)
	assert.Equal(t, "Ferrero", scored[0].Candidate.Brand)
	assert.True(t, scored[0].BrandMatched)
	assert.False(t, scored[1].BrandMatched)
}

func TestScoreCandidatesQuantityMatch(t *testing.T) {
	w := DefaultScoringWeights()
	candidates := []FoodCandidate{
		{Name: "Cola", Brand: "FizzCo", PackageQuantity: "330 ml", CarbsPer100g: 10},
		{Name: "Cola", Brand: "FizzCo", PackageQuantity: "1.5 l", CarbsPer100g: 10},
	}

	scored := ScoreCandidates("cola 330", candidates, w)

	require.Len(t, scored, 2)
	assert.Equal(t, "330 ml", scored[0].Candidate.PackageQuantity)
	assert.InDelta(t, w.QuantityMatch, scored[0].Score-scored[1].Score, 0.001)
}

func TestScoreCandidatesConfusablePenaltyNotAppliedWhenQueried(t *testing.T) {
	candidates := []FoodCandidate{
		{Name: "Strawberry Yogurt", Brand: "DairyCo", CarbsPer100g: 14},
		{Name: "Strawberry", CarbsPer100g: 8},
	}

	scored := ScoreCandidates("strawberry yogurt", candidates, DefaultScoringWeights())

	require.Len(t, scored, 2)
	assert.Equal(t, "Strawberry Yogurt", scored[0].Candidate.Name)
}

func TestScoreCandidatesTiesKeepInputOrder(t *testing.T) {
	candidates := []FoodCandidate{
		{Name: "Oat Bar", CarbsPer100g: 60},
		{Name: "Rye Bar", CarbsPer100g: 55},
	}

	scored := ScoreCandidates("granola", candidates, DefaultScoringWeights())

	require.Len(t, scored, 2)
	assert.Equal(t, "Oat Bar", scored[0].Candidate.Name)
	assert.Equal(t, "Rye Bar", scored[1].Candidate.Name)
	assert.Equal(t, scored[0].Score, scored[1].Score)
}

func TestScoreCandidatesEmptyInput(t *testing.T) {
	scored := ScoreCandidates("banana", nil, DefaultScoringWeights())
	assert.Empty(t, scored)
}
