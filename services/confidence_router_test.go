package services

import (
	"testing"

	"insulinai-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoredAt(score float64, name string) ScoredCandidate {
	return ScoredCandidate{
		Candidate: FoodCandidate{Name: name, CarbsPer100g: 20, FatPer100g: 1, ProteinPer100g: 2},
		Score:     score,
	}
}

func TestRouteCandidatesDirectTier(t *testing.T) {
	decision, err := RouteCandidates(
		[]ScoredCandidate{scoredAt(200, "Banana"), scoredAt(90, "Banana Bread")},
		models.ModeHybrid, DefaultRouterThresholds())

	require.NoError(t, err)
	assert.Equal(t, ActionDirectMatch, decision.Action)
	require.NotNil(t, decision.Match)
	assert.Equal(t, "Banana", decision.Match.Name)
}

func TestRouteCandidatesBoundaryScoreGoesToContext(t *testing.T) {
	// exactly at the direct threshold is not "above" it
	decision, err := RouteCandidates(
		[]ScoredCandidate{scoredAt(150, "Banana")},
		models.ModeHybrid, DefaultRouterThresholds())

	require.NoError(t, err)
	assert.Equal(t, ActionUseAsContext, decision.Action)
}

func TestRouteCandidatesContextTierCapsFacts(t *testing.T) {
	scored := []ScoredCandidate{
		scoredAt(120, "A"), scoredAt(110, "B"), scoredAt(100, "C"),
		scoredAt(95, "D"), scoredAt(90, "E"),
	}
	decision, err := RouteCandidates(scored, models.ModeHybrid, DefaultRouterThresholds())

	require.NoError(t, err)
	assert.Equal(t, ActionUseAsContext, decision.Action)
	require.Len(t, decision.ContextFacts, 3)
	assert.Contains(t, decision.ContextFacts[0], "A:")
	assert.Contains(t, decision.ContextFacts[0], "20.0g carbs")
}

func TestRouteCandidatesLowScoreDefersToAI(t *testing.T) {
	decision, err := RouteCandidates(
		[]ScoredCandidate{scoredAt(40, "Something")},
		models.ModeHybrid, DefaultRouterThresholds())

	require.NoError(t, err)
	assert.Equal(t, ActionDeferToAI, decision.Action)
	assert.Empty(t, decision.ContextFacts)
}

func TestRouteCandidatesEmptyDefersInHybrid(t *testing.T) {
	decision, err := RouteCandidates(nil, models.ModeHybrid, DefaultRouterThresholds())

	require.NoError(t, err)
	assert.Equal(t, ActionDeferToAI, decision.Action)
}

func TestRouteCandidatesDatabaseOnlyEmptyFails(t *testing.T) {
	_, err := RouteCandidates(nil, models.ModeDatabaseOnly, DefaultRouterThresholds())
	assert.ErrorIs(t, err, ErrNoMatchFound)
}

func TestRouteCandidatesDatabaseOnlyBelowFloorFails(t *testing.T) {
	_, err := RouteCandidates(
		[]ScoredCandidate{scoredAt(50, "Weak match")},
		models.ModeDatabaseOnly, DefaultRouterThresholds())
	assert.ErrorIs(t, err, ErrNoMatchFound)
}

func TestRouteCandidatesDatabaseOnlyAcceptsModestScore(t *testing.T) {
	// database-only takes the best hit above the floor even when hybrid
	// would have routed it to the AI
	decision, err := RouteCandidates(
		[]ScoredCandidate{scoredAt(90, "Porridge")},
		models.ModeDatabaseOnly, DefaultRouterThresholds())

	require.NoError(t, err)
	assert.Equal(t, ActionDirectMatch, decision.Action)
	assert.Equal(t, "Porridge", decision.Match.Name)
}

func TestIsBarcode(t *testing.T) {
	assert.True(t, IsBarcode("8001505005707"))
	assert.True(t, IsBarcode("12345678"))
	assert.False(t, IsBarcode("1234567"))        // too short
	assert.False(t, IsBarcode("123456789012345")) // too long
	assert.False(t, IsBarcode("banana"))
	assert.False(t, IsBarcode("123 456 789"))
}
