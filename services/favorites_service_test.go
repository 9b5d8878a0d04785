package services

import (
	"encoding/json"
	"testing"
	"time"

	"insulinai-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordOf(name string, carbs float64, ateAt time.Time) models.AnalysisRecord {
	items, _ := json.Marshal([]models.FoodItemEstimate{{Name: name, Carbs: carbs}})
	return models.AnalysisRecord{
		Description: name,
		ItemsJSON:   string(items),
		TotalCarbs:  carbs,
		AteAt:       ateAt,
	}
}

func at(hour int, daysAgo int) time.Time {
	base := time.Date(2026, 8, 20, hour, 30, 0, 0, time.UTC)
	return base.AddDate(0, 0, -daysAgo)
}

func TestAnalyzeHistoryClustersSimilarNames(t *testing.T) {
	history := NewHistoryService(nil)
	records := []models.AnalysisRecord{
		recordOf("Porridge", 40, at(7, 1)),
		recordOf("porridge with honey", 45, at(8, 3)),
		recordOf("Porridge", 38, at(7, 5)),
		recordOf("Pizza", 80, at(20, 2)), // only once, below threshold
	}

	favorites := analyzeHistoryForFavorites(records, history)

	require.Len(t, favorites, 1)
	assert.Equal(t, 3, favorites[0].Frequency)
	assert.Equal(t, "morning", favorites[0].TimeBucket)
	assert.Equal(t, 41.0, favorites[0].Carbs) // (40+45+38)/3 rounded
	assert.Equal(t, "🥣", favorites[0].Icon)
}

func TestAnalyzeHistoryKeepsMostRecentSpelling(t *testing.T) {
	history := NewHistoryService(nil)
	records := []models.AnalysisRecord{
		recordOf("banana", 23, at(10, 9)),
		recordOf("banana", 23, at(10, 6)),
		recordOf("Banana (ripe)", 25, at(10, 1)),
	}

	favorites := analyzeHistoryForFavorites(records, history)

	require.Len(t, favorites, 1)
	assert.Equal(t, "Banana (ripe)", favorites[0].Name)
	assert.Equal(t, "🍌", favorites[0].Icon)
}

func TestAnalyzeHistorySortsByFrequency(t *testing.T) {
	history := NewHistoryService(nil)
	var records []models.AnalysisRecord
	for i := 0; i < 5; i++ {
		records = append(records, recordOf("Rice", 45, at(13, i)))
	}
	for i := 0; i < 3; i++ {
		records = append(records, recordOf("Toast", 20, at(7, i)))
	}

	favorites := analyzeHistoryForFavorites(records, history)

	require.Len(t, favorites, 2)
	assert.Equal(t, "Rice", favorites[0].Name)
	assert.Equal(t, 5, favorites[0].Frequency)
	assert.Equal(t, "lunch", favorites[0].TimeBucket)
	assert.Equal(t, "Toast", favorites[1].Name)
}

func TestTimeBuckets(t *testing.T) {
	assert.Equal(t, "morning", timeBucket(7))
	assert.Equal(t, "lunch", timeBucket(12))
	assert.Equal(t, "afternoon", timeBucket(16))
	assert.Equal(t, "dinner", timeBucket(20))
	assert.Equal(t, "dinner", timeBucket(2)) // late night counts as dinner
}

func TestAreSimilarFoods(t *testing.T) {
	assert.True(t, areSimilarFoods("Banana", "banana"))
	assert.True(t, areSimilarFoods("porridge", "porridge with honey"))
	assert.True(t, areSimilarFoods("chicken rice bowl", "chicken rice"))
	assert.False(t, areSimilarFoods("pizza", "pasta"))
	assert.False(t, areSimilarFoods("apple pie", "banana bread"))
}

func TestFoodIconFallback(t *testing.T) {
	assert.Equal(t, "🍕", foodIcon("Margherita Pizza"))
	assert.Equal(t, "🍽️", foodIcon("Mystery casserole"))
}
