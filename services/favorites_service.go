package services

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"insulinai-backend/models"

	"gorm.io/gorm"
)

// Foods eaten at least this often become auto-suggested favorites.
const favoriteFrequencyThreshold = 3

// Favorite is a frequently eaten food derived from meal history.
type Favorite struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Icon       string  `json:"icon"`
	Carbs      float64 `json:"carbs"`
	Fat        float64 `json:"fat"`
	Protein    float64 `json:"protein"`
	TimeBucket string  `json:"time_bucket"` // morning | lunch | afternoon | dinner
	Frequency  int     `json:"frequency"`
}

// FavoritesService derives favorites from stored analysis history.
type FavoritesService struct {
	db      *gorm.DB
	history *HistoryService
}

func NewFavoritesService(db *gorm.DB) *FavoritesService {
	return &FavoritesService{db: db, history: NewHistoryService(db)}
}

// Suggest analyzes the user's recent history and returns auto-suggested
// favorites sorted by time-of-day relevance, then frequency.
func (s *FavoritesService) Suggest(userID uint, now time.Time) ([]Favorite, error) {
	records, err := s.history.List(userID, 90, 200)
	if err != nil {
		return nil, err
	}

	favorites := analyzeHistoryForFavorites(records, s.history)
	currentBucket := timeBucket(now.Hour())
	sort.SliceStable(favorites, func(i, j int) bool {
		iRel := favorites[i].TimeBucket == currentBucket
		jRel := favorites[j].TimeBucket == currentBucket
		if iRel != jRel {
			return iRel
		}
		return favorites[i].Frequency > favorites[j].Frequency
	})
	return favorites, nil
}

type foodFrequency struct {
	name         string
	count        int
	totalCarbs   float64
	totalFat     float64
	totalProtein float64
	buckets      map[string]int
	lastEaten    time.Time
}

// analyzeHistoryForFavorites clusters history entries by similar food name
// and keeps the clusters that cross the frequency threshold.
func analyzeHistoryForFavorites(records []models.AnalysisRecord, history *HistoryService) []Favorite {
	var keys []string
	freq := map[string]*foodFrequency{}

	for i := range records {
		record := &records[i]
		bucket := timeBucket(record.AteAt.Hour())
		mainFood := mainFoodName(record, history)
		normalized := normalizeFoodName(mainFood)

		var existing *foodFrequency
		for _, key := range keys {
			if areSimilarFoods(key, normalized) {
				existing = freq[key]
				break
			}
		}

		if existing != nil {
			existing.count++
			existing.totalCarbs += record.TotalCarbs
			existing.totalFat += record.TotalFat
			existing.totalProtein += record.TotalProtein
			existing.buckets[bucket]++
			if record.AteAt.After(existing.lastEaten) {
				existing.lastEaten = record.AteAt
				existing.name = mainFood // keep the most recent spelling
			}
		} else {
			keys = append(keys, normalized)
			freq[normalized] = &foodFrequency{
				name:         mainFood,
				count:        1,
				totalCarbs:   record.TotalCarbs,
				totalFat:     record.TotalFat,
				totalProtein: record.TotalProtein,
				buckets:      map[string]int{bucket: 1},
				lastEaten:    record.AteAt,
			}
		}
	}

	var favorites []Favorite
	for _, key := range keys {
		data := freq[key]
		if data.count < favoriteFrequencyThreshold {
			continue
		}
		favorites = append(favorites, Favorite{
			ID:         "auto-" + strings.ReplaceAll(normalizeFoodName(data.name), " ", "-"),
			Name:       data.name,
			Icon:       foodIcon(data.name),
			Carbs:      math.Round(data.totalCarbs / float64(data.count)),
			Fat:        math.Round(data.totalFat / float64(data.count)),
			Protein:    math.Round(data.totalProtein / float64(data.count)),
			TimeBucket: dominantBucket(data.buckets),
			Frequency:  data.count,
		})
	}

	sort.SliceStable(favorites, func(i, j int) bool {
		return favorites[i].Frequency > favorites[j].Frequency
	})
	return favorites
}

func mainFoodName(record *models.AnalysisRecord, history *HistoryService) string {
	if items := history.Items(record); len(items) > 0 && items[0].Name != "" {
		return items[0].Name
	}
	if record.Description != "" {
		return strings.TrimSpace(strings.SplitN(record.Description, ",", 2)[0])
	}
	return "Unknown"
}

func timeBucket(hour int) string {
	switch {
	case hour >= 5 && hour < 11:
		return "morning"
	case hour >= 11 && hour < 15:
		return "lunch"
	case hour >= 15 && hour < 18:
		return "afternoon"
	default:
		return "dinner"
	}
}

func dominantBucket(buckets map[string]int) string {
	best, bestCount := "dinner", -1
	for _, b := range []string{"morning", "lunch", "afternoon", "dinner"} {
		if buckets[b] > bestCount {
			best, bestCount = b, buckets[b]
		}
	}
	return best
}

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

func normalizeFoodName(name string) string {
	return nonWordRe.ReplaceAllString(strings.TrimSpace(strings.ToLower(name)), "")
}

// areSimilarFoods groups name variants ("banana", "Banana (ripe)",
// "banana bread" does NOT match "banana" via word overlap alone unless
// half of the shorter name's words overlap).
func areSimilarFoods(name1, name2 string) bool {
	n1 := normalizeFoodName(name1)
	n2 := normalizeFoodName(name2)
	if n1 == n2 {
		return true
	}
	if strings.Contains(n1, n2) || strings.Contains(n2, n1) {
		return true
	}

	words1 := longWords(n1)
	words2 := longWords(n2)
	overlap := 0
	for _, w := range words1 {
		for _, v := range words2 {
			if w == v {
				overlap++
				break
			}
		}
	}
	minLen := len(words1)
	if len(words2) < minLen {
		minLen = len(words2)
	}
	return overlap >= 1 && float64(overlap) >= float64(minLen)*0.5
}

func longWords(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

var foodIcons = []struct {
	terms []string
	icon  string
}{
	{[]string{"oat", "cereal", "porridge"}, "🥣"},
	{[]string{"egg"}, "🍳"},
	{[]string{"pancake", "waffle"}, "🥞"},
	{[]string{"toast", "bread"}, "🍞"},
	{[]string{"coffee", "espresso", "latte"}, "☕"},
	{[]string{"apple"}, "🍎"},
	{[]string{"banana"}, "🍌"},
	{[]string{"orange"}, "🍊"},
	{[]string{"strawberr"}, "🍓"},
	{[]string{"pizza"}, "🍕"},
	{[]string{"burger"}, "🍔"},
	{[]string{"sandwich"}, "🥪"},
	{[]string{"pasta", "spaghetti"}, "🍝"},
	{[]string{"rice"}, "🍚"},
	{[]string{"salad"}, "🥗"},
	{[]string{"soup"}, "🍲"},
	{[]string{"chicken"}, "🍗"},
	{[]string{"fish", "salmon"}, "🐟"},
	{[]string{"cookie", "biscuit"}, "🍪"},
	{[]string{"cake"}, "🍰"},
	{[]string{"ice cream", "gelato"}, "🍦"},
	{[]string{"chocolate"}, "🍫"},
	{[]string{"fries", "chips"}, "🍟"},
	{[]string{"juice"}, "🧃"},
	{[]string{"milk"}, "🥛"},
}

func foodIcon(name string) string {
	lower := strings.ToLower(name)
	for _, entry := range foodIcons {
		for _, term := range entry.terms {
			if strings.Contains(lower, term) {
				return entry.icon
			}
		}
	}
	return "🍽️"
}

// FrequencyOf reports how often a similar food appears in the records.
// Used by clients to decide when to offer "save as favorite".
func (s *FavoritesService) FrequencyOf(userID uint, foodName string) (int, error) {
	records, err := s.history.List(userID, 90, 200)
	if err != nil {
		return 0, err
	}
	normalized := normalizeFoodName(foodName)
	count := 0
	for i := range records {
		if areSimilarFoods(normalizeFoodName(mainFoodName(&records[i], s.history)), normalized) {
			count++
		}
	}
	return count, nil
}
