package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"insulinai-backend/models"
	"insulinai-backend/utils"
)

// ChatClient is the external AI capability: given messages and an output
// schema, return the raw completion text. Implementations are untrusted -
// everything they return goes through defensive parsing and a fix-up pass.
type ChatClient interface {
	Complete(ctx context.Context, model string, messages []chatMessage, schema map[string]any) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// openAICompatClient speaks the chat-completions wire format shared by
// OpenAI and Perplexity.
type openAICompatClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func newOpenAICompatClient(baseURL, apiKey string) *openAICompatClient {
	return &openAICompatClient{
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *openAICompatClient) Complete(ctx context.Context, model string, messages []chatMessage, schema map[string]any) (string, error) {
	payload := map[string]any{
		"model":       model,
		"messages":    messages,
		"max_tokens":  2048,
		"temperature": 0.1,
	}
	if schema != nil {
		payload["response_format"] = map[string]any{
			"type":        "json_schema",
			"json_schema": schema,
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: call chat API: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read chat response: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: chat API error %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var cr chatCompletionResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("%w: parse chat JSON: %v", ErrUpstream, err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty chat completion", ErrUpstream)
	}
	return cr.Choices[0].Message.Content, nil
}

// aiProvider pairs a client with its primary and fallback models.
type aiProvider struct {
	name          string
	client        ChatClient
	primaryModel  string
	fallbackModel string
}

// AIService owns the AI-fallback path of the pipeline: prompt assembly,
// schema-constrained requests, defensive response parsing and the
// fix-up/safety-net pass.
type AIService struct {
	providers  []aiProvider
	retryDelay time.Duration
}

// NewAIService wires whichever providers have keys configured. Perplexity
// goes first when present - its web search grounds label lookups better.
func NewAIService() *AIService {
	s := &AIService{retryDelay: 500 * time.Millisecond}
	if key := os.Getenv("PERPLEXITY_API_KEY"); key != "" {
		s.providers = append(s.providers, aiProvider{
			name:          "perplexity",
			client:        newOpenAICompatClient("https://api.perplexity.ai", key),
			primaryModel:  "sonar-pro",
			fallbackModel: "sonar",
		})
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		s.providers = append(s.providers, aiProvider{
			name:          "openai",
			client:        newOpenAICompatClient("https://api.openai.com/v1", key),
			primaryModel:  "gpt-4o-mini",
			fallbackModel: "gpt-4o",
		})
	}
	return s
}

// NewAIServiceWithProviders is the injection point for tests.
func NewAIServiceWithProviders(providers ...aiProvider) *AIService {
	return &AIService{providers: providers}
}

// EstimateInput is one estimation request.
type EstimateInput struct {
	Text         string
	ImageDataURI string
	Facts        []string // verified database lines injected by the router
	CarbRatio    float64
	Language     string // "en" | "it"
}

// rawAnalysis mirrors the JSON shape requested from the AI. Parsed leniently
// and then repaired - the provider cannot be trusted to honor the schema.
type rawAnalysis struct {
	IsFood              *bool                     `json:"is_food"`
	FriendlyDescription string                    `json:"friendly_description"`
	FoodItems           []models.FoodItemEstimate `json:"food_items"`
	TotalCarbs          float64                   `json:"total_carbs"`
	TotalFat            float64                   `json:"total_fat"`
	TotalProtein        float64                   `json:"total_protein"`
	SuggestedInsulin    float64                   `json:"suggested_insulin"`
	SplitBolus          models.SplitBolus         `json:"split_bolus_recommendation"`
	Reasoning           []string                  `json:"reasoning"`
	CalculationFormula  string                    `json:"calculation_formula"`
	Sources             []string                  `json:"sources"`
	ConfidenceLevel     string                    `json:"confidence_level"`
	MissingInfo         *string                   `json:"missing_info"`
	Warnings            []string                  `json:"warnings"`
}

// Estimate runs one analysis through the configured providers. Each provider
// gets two attempts (primary then fallback model); the first parseable
// response wins. All providers exhausted means ErrUpstream.
func (s *AIService) Estimate(ctx context.Context, input EstimateInput) (*models.AnalysisResult, error) {
	if len(s.providers) == 0 {
		return nil, fmt.Errorf("%w: no AI provider configured", ErrUpstream)
	}

	messages := s.buildMessages(input)
	var lastErr error

	for _, p := range s.providers {
		for attempt, model := range []string{p.primaryModel, p.fallbackModel} {
			if attempt > 0 {
				time.Sleep(s.retryDelay)
			}
			content, err := p.client.Complete(ctx, model, messages, analysisSchema())
			if err != nil {
				lastErr = err
				continue
			}
			raw, err := parseAnalysisContent(content)
			if err != nil {
				lastErr = err
				continue
			}
			if isConfidentNonFood(raw) {
				return nil, fmt.Errorf("%w: %s", ErrNonFoodInput, raw.FriendlyDescription)
			}
			return fixUpAnalysis(raw, input.CarbRatio, input.Language), nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no response")
	}
	return nil, fmt.Errorf("%w: all AI providers failed: %v", ErrUpstream, lastErr)
}

// Refine amends a previous estimate with new user feedback instead of
// recomputing from scratch. Fields the user already confirmed (item names,
// per-100g basis, description) are carried over; any failure in the AI
// round-trip falls back to scaling the previous estimate locally.
func (s *AIService) Refine(ctx context.Context, previous *models.AnalysisResult, feedback string, carbRatio float64, language string) (*models.AnalysisResult, error) {
	if len(s.providers) == 0 {
		return nil, fmt.Errorf("%w: no AI provider configured", ErrUpstream)
	}

	feedback = sanitizeFeedback(feedback)
	prevJSON, _ := json.Marshal(previous)

	system := fmt.Sprintf(`You are refining a previous food analysis with new information from the user.

PREVIOUS ANALYSIS:
%s

RULES:
1. Amend the previous analysis, do not start over. Keep item names and data the user already confirmed.
2. The previous per-item values are per 100g unless approx_weight says otherwise.
3. Apply the user's quantity or correction, recompute totals, and recompute insulin with ratio 1U per %sg carbs.
4. Clear missing_info once the quantity is known.
5. Respond with the same JSON shape as the previous analysis.`, prevJSON, fmtNum(carbRatio))

	messages := []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: fmt.Sprintf("User says: %q", feedback)},
	}

	p := s.providers[0]
	content, err := p.client.Complete(ctx, p.primaryModel, messages, analysisSchema())
	if err == nil {
		if raw, perr := parseAnalysisContent(content); perr == nil && len(raw.FoodItems) > 0 {
			return fixUpAnalysis(raw, carbRatio, language), nil
		}
	}

	// AI unusable: amend locally from whatever quantity we can read
	if result, ok := ParseQuantityLocally(feedback, previous, carbRatio); ok {
		result.Warnings = append(result.Warnings, "Refined locally after AI refinement failed")
		return result, nil
	}
	return nil, fmt.Errorf("%w: refinement failed: %v", ErrUpstream, err)
}

func (s *AIService) buildMessages(input EstimateInput) []chatMessage {
	system := buildSystemPrompt(input)

	var userContent any
	if input.ImageDataURI != "" {
		text := "Analyze this food image carefully. Extract ALL visible nutritional data from labels."
		if strings.TrimSpace(input.Text) != "" {
			text = input.Text + "\n\n" + text
		}
		userContent = []map[string]any{
			{"type": "text", "text": text},
			{"type": "image_url", "image_url": map[string]string{"url": input.ImageDataURI}},
		}
	} else {
		userContent = fmt.Sprintf("Analyze this food: %q", input.Text)
	}

	return []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: userContent},
	}
}

func buildSystemPrompt(input EstimateInput) string {
	language := "English"
	if input.Language == "it" {
		language = "Italian"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are a precise diabetes nutrition assistant. Analyze food and calculate insulin doses.

LANGUAGE: %s
INSULIN RATIO: 1 unit per %sg of carbs

RULES:
1. OCR PRIORITY: if a nutrition label is visible, extract exact values. Never estimate over readable text.
2. QUANTITY LOGIC: if you know carbs per item but not how many were eaten, set suggested_insulin=0 and ask in missing_info. If you have a total weight, calculate normally. If estimating visually, set confidence_level to medium or low and ask for confirmation.
3. friendly_description: 3-4 words maximum.
4. calculation_formula: always show the math.
5. sources: list where each number came from (label OCR, database, estimation).
6. confidence_level: "high" only for label text or an exact catalog match, "medium" for reasoned estimation, "low" for visual-only guesses.
7. is_food: set false ONLY when the input is clearly unrelated to food or drink. When unsure, treat it as food.
8. Never leave missing_info empty when suggested_insulin is 0 and food was recognized.
`, language, fmtNum(input.CarbRatio))

	if len(input.Facts) > 0 {
		b.WriteString("\nVERIFIED DATABASE FACTS (prefer these numbers over estimation):\n")
		for _, f := range input.Facts {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	return b.String()
}

// analysisSchema declares the strict output contract sent with every
// request. Field names match models.AnalysisResult exactly.
func analysisSchema() map[string]any {
	num := map[string]any{"type": "number"}
	str := map[string]any{"type": "string"}
	strArr := map[string]any{"type": "array", "items": str}

	return map[string]any{
		"name":   "food_analysis",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"is_food":              map[string]any{"type": "boolean"},
				"friendly_description": str,
				"food_items": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":          str,
							"carbs":         num,
							"fat":           num,
							"protein":       num,
							"approx_weight": map[string]any{"type": []string{"string", "null"}},
						},
						"required":             []string{"name", "carbs", "fat", "protein", "approx_weight"},
						"additionalProperties": false,
					},
				},
				"total_carbs":       num,
				"total_fat":         num,
				"total_protein":     num,
				"suggested_insulin": num,
				"split_bolus_recommendation": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"recommended":      map[string]any{"type": "boolean"},
						"split_percentage": str,
						"duration":         str,
						"reason":           str,
					},
					"required":             []string{"recommended", "split_percentage", "duration", "reason"},
					"additionalProperties": false,
				},
				"reasoning":           strArr,
				"calculation_formula": str,
				"sources":             strArr,
				"confidence_level":    map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}},
				"missing_info":        map[string]any{"type": []string{"string", "null"}},
				"warnings":            strArr,
			},
			"required": []string{
				"is_food", "friendly_description", "food_items", "total_carbs", "total_fat",
				"total_protein", "suggested_insulin", "split_bolus_recommendation",
				"reasoning", "calculation_formula", "sources", "confidence_level",
				"missing_info", "warnings",
			},
			"additionalProperties": false,
		},
	}
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseAnalysisContent extracts the JSON object from a completion that may
// be wrapped in code fences or surrounding prose.
func parseAnalysisContent(content string) (*rawAnalysis, error) {
	jsonText := content
	if m := codeFenceRe.FindStringSubmatch(content); m != nil {
		jsonText = m[1]
	} else if start := strings.IndexByte(content, '{'); start >= 0 {
		if end := strings.LastIndexByte(content, '}'); end > start {
			jsonText = content[start : end+1]
		}
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, fmt.Errorf("%w: unparseable analysis payload: %v", ErrUpstream, err)
	}
	return &raw, nil
}

// isConfidentNonFood applies the lenient non-food rule: reject only an
// explicit is_food=false with high confidence and nothing recognized.
func isConfidentNonFood(raw *rawAnalysis) bool {
	return raw.IsFood != nil && !*raw.IsFood &&
		raw.ConfidenceLevel == models.ConfidenceHigh &&
		len(raw.FoodItems) == 0
}

// fixUpAnalysis is the validation pass applied to every AI response.
// Upstream compliance with the requested schema is never assumed: fields
// are coerced, totals recomputed, and the missing-info safety net enforced
// independently of the provider's behavior.
func fixUpAnalysis(raw *rawAnalysis, carbRatio float64, language string) *models.AnalysisResult {
	result := &models.AnalysisResult{
		FriendlyDescription: strings.TrimSpace(raw.FriendlyDescription),
		FoodItems:           raw.FoodItems,
		TotalCarbs:          nonNegative(raw.TotalCarbs),
		TotalFat:            nonNegative(raw.TotalFat),
		TotalProtein:        nonNegative(raw.TotalProtein),
		SuggestedInsulin:    nonNegative(raw.SuggestedInsulin),
		SplitBolus:          raw.SplitBolus,
		Reasoning:           raw.Reasoning,
		CalculationFormula:  raw.CalculationFormula,
		Sources:             raw.Sources,
		ConfidenceLevel:     raw.ConfidenceLevel,
		MissingInfo:         raw.MissingInfo,
		Warnings:            raw.Warnings,
	}
	if result.FriendlyDescription == "" {
		result.FriendlyDescription = "Unknown food"
	}
	switch result.ConfidenceLevel {
	case models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow:
	default:
		result.ConfidenceLevel = models.ConfidenceMedium
	}
	for i := range result.FoodItems {
		item := &result.FoodItems[i]
		item.Carbs = nonNegative(item.Carbs)
		item.Fat = nonNegative(item.Fat)
		item.Protein = nonNegative(item.Protein)
		if item.Name == "" {
			item.Name = "Unknown item"
		}
		if item.ApproxWeight == "" {
			item.ApproxWeight = "100g"
		}
	}
	if result.MissingInfo != nil && strings.TrimSpace(*result.MissingInfo) == "" {
		result.MissingInfo = nil
	}

	// totals must equal the item sums; the items are the ground truth
	var sumCarbs, sumFat, sumProtein float64
	for _, item := range result.FoodItems {
		sumCarbs += item.Carbs
		sumFat += item.Fat
		sumProtein += item.Protein
	}
	if len(result.FoodItems) > 0 {
		if diff(sumCarbs, result.TotalCarbs) > 0.1 {
			result.TotalCarbs = utils.Round1(sumCarbs)
		}
		if diff(sumFat, result.TotalFat) > 0.1 {
			result.TotalFat = utils.Round1(sumFat)
		}
		if diff(sumProtein, result.TotalProtein) > 0.1 {
			result.TotalProtein = utils.Round1(sumProtein)
		}
	}

	// safety net: zero dose with recognized food and no question asked
	// means the provider dropped the flag - synthesize it ourselves
	if result.SuggestedInsulin == 0 && len(result.FoodItems) > 0 && result.MissingInfo == nil && result.TotalCarbs == 0 {
		question := "How many grams or pieces did you eat?"
		if language == "it" {
			question = "Quanti grammi o pezzi hai mangiato?"
		}
		result.MissingInfo = &question
		result.Warnings = append(result.Warnings, "Auto-generated quantity question")
	}

	// the dose and formula are always recomputed locally; the provider's
	// arithmetic is advisory at best
	ApplyDose(result, ComputeDose(result, carbRatio))

	// safety net part two: carbs known but provider zeroed the dose and
	// asked no question - ApplyDose above already recomputed, but if the
	// result still rounds to zero with food present, ask for quantity
	if result.SuggestedInsulin == 0 && len(result.FoodItems) > 0 && result.MissingInfo == nil {
		question := "How many grams or pieces did you eat?"
		if language == "it" {
			question = "Quanti grammi o pezzi hai mangiato?"
		}
		result.MissingInfo = &question
		result.Warnings = append(result.Warnings, "Auto-generated quantity question")
		ApplyDose(result, ComputeDose(result, carbRatio))
	}

	if len(result.Sources) == 0 {
		result.Sources = []string{"AI estimate"}
	}
	return result
}

// sanitizeFeedback strips refinement markers a client may have wrapped
// around the user's words and caps the length.
func sanitizeFeedback(text string) string {
	if strings.Contains(text, "[REFINEMENT]") || strings.Contains(text, "User says:") {
		if m := regexp.MustCompile(`(?i)User says:\s*"([^"]+)"`).FindStringSubmatch(text); m != nil {
			text = m[1]
		} else {
			lines := strings.Split(strings.TrimSpace(text), "\n")
			text = lines[len(lines)-1]
		}
	}
	text = strings.TrimSpace(text)
	if len(text) > 100 {
		text = text[:100]
	}
	return text
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func diff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
