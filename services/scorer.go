package services

import (
	"regexp"
	"sort"
	"strings"
)

// ScoringWeights holds the additive point system used to rank database
// candidates against a query. Scores are a relative ranking signal with no
// fixed bound - they are compared against RouterThresholds, never treated
// as probabilities.
type ScoringWeights struct {
	ExactMatch     float64 // candidate name equals the query
	PrefixMatch    float64 // candidate name starts with the query
	SubstringMatch float64 // candidate name contains the query
	GenericBonus   float64 // unbranded product, closer to the per-100g reference
	BrandMatch     float64 // a query word matches the candidate's brand
	CategoryMatch  float64 // a query word matches a candidate category
	QuantityMatch  float64 // a number in the query appears in name/quantity

	LengthPenaltyDivisor float64 // name length / divisor is subtracted
	ConfusablePenalty    float64 // flavored-variant term present only in the name
}

func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		ExactMatch:           200,
		PrefixMatch:          80,
		SubstringMatch:       40,
		GenericBonus:         30,
		BrandMatch:           100,
		CategoryMatch:        50,
		QuantityMatch:        50,
		LengthPenaltyDivisor: 2,
		ConfusablePenalty:    120,
	}
}

// ScoredCandidate pairs a candidate with its ranking score.
type ScoredCandidate struct {
	Candidate    FoodCandidate
	Score        float64
	BrandMatched bool
}

// Terms that routinely hijack raw-ingredient searches: a query for "banana"
// must not resolve to "Banana Yogurt" unless the user asked for it.
var confusableTerms = []string{"yogurt", "yoghurt", "smoothie", "milkshake", "dessert", "pudding", "drink"}

var numberPattern = regexp.MustCompile(`\d+`)

// ScoreCandidates ranks candidates against the query, descending by score.
// Ties keep the original candidate order. An empty candidate list returns
// an empty result.
func ScoreCandidates(query string, candidates []FoodCandidate, w ScoringWeights) []ScoredCandidate {
	q := strings.ToLower(strings.TrimSpace(query))
	qWords := queryWords(q)
	qNumbers := numberPattern.FindAllString(q, -1)

	out := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		brand := strings.ToLower(strings.TrimSpace(c.Brand))

		var score float64
		if name == q {
			score += w.ExactMatch
		}
		if strings.HasPrefix(name, q) {
			score += w.PrefixMatch
		}
		if strings.Contains(name, q) {
			score += w.SubstringMatch
		}

		brandMatched := false
		if brand != "" {
			for _, word := range qWords {
				if strings.Contains(brand, word) {
					score += w.BrandMatch
					brandMatched = true
					break
				}
			}
		} else {
			score += w.GenericBonus
		}

		for _, word := range qWords {
			if categoryContains(c.Categories, word) {
				score += w.CategoryMatch
				break
			}
		}

		if len(qNumbers) > 0 {
			haystack := name + " " + strings.ToLower(c.PackageQuantity)
			for _, num := range qNumbers {
				if strings.Contains(haystack, num) {
					score += w.QuantityMatch
					break
				}
			}
		}

		// prefer concise canonical names over verbose composite products
		score -= float64(len(name)) / w.LengthPenaltyDivisor

		for _, term := range confusableTerms {
			if strings.Contains(name, term) && !strings.Contains(q, term) {
				score -= w.ConfusablePenalty
			}
		}

		out = append(out, ScoredCandidate{Candidate: c, Score: score, BrandMatched: brandMatched})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func queryWords(q string) []string {
	var words []string
	for _, w := range strings.Fields(q) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}
	return words
}

func categoryContains(categories []string, word string) bool {
	for _, cat := range categories {
		if strings.Contains(strings.ToLower(cat), word) {
			return true
		}
	}
	return false
}
