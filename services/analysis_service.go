package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"insulinai-backend/models"
	"insulinai-backend/utils"
)

// CandidateSearcher is the food database surface the pipeline depends on.
// *OFFService satisfies it; tests substitute fakes.
type CandidateSearcher interface {
	Search(query string) ([]FoodCandidate, error)
	LookupBarcode(code string) (*FoodCandidate, error)
}

// Estimator is the AI-fallback surface of the pipeline.
type Estimator interface {
	Estimate(ctx context.Context, input EstimateInput) (*models.AnalysisResult, error)
	Refine(ctx context.Context, previous *models.AnalysisResult, feedback string, carbRatio float64, language string) (*models.AnalysisResult, error)
}

// LabelDetector extracts food label hints from a photo. Optional: a nil
// detector just skips the hint step.
type LabelDetector interface {
	RecognizeLabels(ctx context.Context, imageBytes []byte) ([]string, error)
}

// AnalysisService runs the full meal pipeline: database lookup, candidate
// scoring, confidence routing, AI fallback and dose calculation.
type AnalysisService struct {
	searcher   CandidateSearcher
	estimator  Estimator
	detector   LabelDetector
	weights    ScoringWeights
	thresholds RouterThresholds
}

func NewAnalysisService(searcher CandidateSearcher, estimator Estimator, detector LabelDetector) *AnalysisService {
	return &AnalysisService{
		searcher:   searcher,
		estimator:  estimator,
		detector:   detector,
		weights:    DefaultScoringWeights(),
		thresholds: DefaultRouterThresholds(),
	}
}

// AnalyzeRequest is one meal analysis call.
type AnalyzeRequest struct {
	Text         string
	ImageDataURI string
	ImageBytes   []byte // decoded photo, used for label hints
	Previous     *models.AnalysisResult
	CarbRatio    float64
	Mode         string // models.ModeDatabaseOnly | ModeHybrid | ModeAIOnly
	Language     string
	PreGlucose   *float64
	LowThreshold float64
}

// AnalyzeMeal resolves one request into a finalized estimate with a dose.
// Refinements of a previous estimate are tried locally before going back
// to the AI; fresh requests flow through barcode, search, score and route.
func (s *AnalysisService) AnalyzeMeal(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	result, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings,
		utils.DoseWarnings(result.SuggestedInsulin, req.PreGlucose, req.LowThreshold)...)
	return result, nil
}

func (s *AnalysisService) resolve(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	// refinement turn: the user is answering a quantity question
	if req.Previous != nil && req.Text != "" {
		if result, ok := ParseQuantityLocally(req.Text, req.Previous, req.CarbRatio); ok {
			return result, nil
		}
		return s.estimator.Refine(ctx, req.Previous, req.Text, req.CarbRatio, req.Language)
	}

	query := strings.TrimSpace(req.Text)

	// image-only requests skip the database path entirely; label hints
	// can still sharpen the text query when OCR brings back a brand
	if query == "" && req.ImageDataURI != "" {
		return s.estimate(ctx, req, nil)
	}
	if query == "" {
		return nil, fmt.Errorf("%w: empty input", ErrNonFoodInput)
	}

	if req.Mode == models.ModeAIOnly {
		return s.estimate(ctx, req, nil)
	}

	// barcodes are exact identifiers: resolve or fail, never fuzzy-match
	if IsBarcode(query) {
		candidate, err := s.searcher.LookupBarcode(query)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			return nil, ErrNoMatchFound
		}
		return s.directEstimate(*candidate, req.CarbRatio), nil
	}

	query = s.hintedQuery(ctx, query, req.ImageBytes)

	candidates, err := s.searcher.Search(query)
	if err != nil {
		if req.Mode == models.ModeDatabaseOnly {
			return nil, err
		}
		// hybrid degrades to pure AI when the database is unreachable
		log.Printf("food search failed, continuing AI-only: %v", err)
		candidates = nil
	}

	scored := ScoreCandidates(query, candidates, s.weights)
	decision, err := RouteCandidates(scored, req.Mode, s.thresholds)
	if err != nil {
		return nil, err
	}

	switch decision.Action {
	case ActionDirectMatch:
		return s.directEstimate(*decision.Match, req.CarbRatio), nil
	case ActionUseAsContext:
		return s.estimate(ctx, req, decision.ContextFacts)
	default:
		return s.estimate(ctx, req, nil)
	}
}

func (s *AnalysisService) estimate(ctx context.Context, req AnalyzeRequest, facts []string) (*models.AnalysisResult, error) {
	return s.estimator.Estimate(ctx, EstimateInput{
		Text:         req.Text,
		ImageDataURI: req.ImageDataURI,
		Facts:        facts,
		CarbRatio:    req.CarbRatio,
		Language:     req.Language,
	})
}

// hintedQuery appends image label hints to a text query when a photo came
// along. Detection failures are logged and ignored - hints are best effort.
func (s *AnalysisService) hintedQuery(ctx context.Context, query string, imageBytes []byte) string {
	if s.detector == nil || len(imageBytes) == 0 {
		return query
	}
	labels, err := s.detector.RecognizeLabels(ctx, imageBytes)
	if err != nil {
		log.Printf("label detection failed: %v", err)
		return query
	}
	for _, label := range labels {
		l := strings.ToLower(label)
		if !strings.Contains(strings.ToLower(query), l) {
			query = query + " " + l
		}
	}
	return query
}

// directEstimate answers from a single authoritative database candidate.
// Values are per 100g; the quantity question is left to the user's next
// turn via the refinement flow, so missing_info stays nil here.
func (s *AnalysisService) directEstimate(c FoodCandidate, carbRatio float64) *models.AnalysisResult {
	label := c.Name
	if c.Brand != "" {
		label = fmt.Sprintf("%s (%s)", c.Name, c.Brand)
	}

	weight := "per 100g"
	if c.PackageQuantity != "" {
		weight = fmt.Sprintf("per 100g (package: %s)", c.PackageQuantity)
	}

	result := &models.AnalysisResult{
		FriendlyDescription: c.Name,
		FoodItems: []models.FoodItemEstimate{{
			Name:         label,
			Carbs:        utils.Round1(c.CarbsPer100g),
			Fat:          utils.Round1(c.FatPer100g),
			Protein:      utils.Round1(c.ProteinPer100g),
			ApproxWeight: weight,
		}},
		TotalCarbs:      utils.Round1(c.CarbsPer100g),
		TotalFat:        utils.Round1(c.FatPer100g),
		TotalProtein:    utils.Round1(c.ProteinPer100g),
		Reasoning:       []string{fmt.Sprintf("Exact database match for %s, values per 100g", label)},
		Sources:         []string{"database match"},
		ConfidenceLevel: models.ConfidenceHigh,
	}
	ApplyDose(result, ComputeDose(result, carbRatio))
	return result
}
