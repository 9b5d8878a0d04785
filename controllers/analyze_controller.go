package controllers

import (
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"insulinai-backend/config"
	"insulinai-backend/models"
	"insulinai-backend/services"
	"insulinai-backend/utils"

	"github.com/gin-gonic/gin"
)

// AnalyzeController owns the meal analysis endpoints. The pipeline service
// is built once at startup and shared across requests.
type AnalyzeController struct {
	pipeline *services.AnalysisService
	history  *services.HistoryService
}

func NewAnalyzeController(pipeline *services.AnalysisService, history *services.HistoryService) *AnalyzeController {
	return &AnalyzeController{pipeline: pipeline, history: history}
}

type AnalyzeInput struct {
	Text             string                 `json:"text"`
	Image            string                 `json:"image"` // data URI
	PreviousAnalysis *models.AnalysisResult `json:"previous_analysis"`
	MealPeriod       string                 `json:"meal_period"` // breakfast | lunch | dinner
	Save             bool                   `json:"save"`
}

func (ac *AnalyzeController) Analyze(c *gin.Context) {
	var input AnalyzeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(input.Text) == "" && input.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text or image required"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	if input.MealPeriod == "" {
		input.MealPeriod = models.CurrentMealPeriod(time.Now())
	}

	result, err := ac.pipeline.AnalyzeMeal(c.Request.Context(), services.AnalyzeRequest{
		Text:         input.Text,
		ImageDataURI: input.Image,
		ImageBytes:   decodeDataURI(input.Image),
		Previous:     input.PreviousAnalysis,
		CarbRatio:    user.ResolveCarbRatio(input.MealPeriod),
		Mode:         user.AnalysisMode,
		Language:     user.Language,
		PreGlucose:   latestGlucose(user.ID),
		LowThreshold: user.LowThreshold,
	})
	if err != nil {
		writeAnalysisError(c, err)
		return
	}

	response := gin.H{"analysis": result}

	// persist only finalized analyses; a pending quantity question means
	// the client will come back with previous_analysis set
	if input.Save && result.MissingInfo == nil {
		photoURL := ""
		if input.Image != "" {
			if url, err := utils.UploadMealPhoto(input.Image, user.ID); err == nil {
				photoURL = url
			} else {
				log.Printf("meal photo upload failed: %v", err)
			}
		}
		record, err := ac.history.SaveAnalysis(user.ID, result, input.MealPeriod, photoURL, latestGlucose(user.ID))
		if err != nil {
			log.Printf("history save failed: %v", err)
		} else {
			response["history_id"] = record.ID
		}
	}

	c.JSON(http.StatusOK, response)
}

type CombineInput struct {
	Analyses   []models.AnalysisResult `json:"analyses" binding:"required"`
	MealPeriod string                  `json:"meal_period"`
}

func (ac *AnalyzeController) Combine(c *gin.Context) {
	var input CombineInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(input.Analyses) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one analysis required"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	combined := services.CombineEstimates(input.Analyses, user.ResolveCarbRatio(input.MealPeriod))
	combined.Warnings = append(combined.Warnings,
		utils.DoseWarnings(combined.SuggestedInsulin, latestGlucose(user.ID), user.LowThreshold)...)

	c.JSON(http.StatusOK, gin.H{"analysis": combined})
}

func writeAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNonFoodInput):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "input does not look like food", "detail": err.Error()})
	case errors.Is(err, services.ErrNoMatchFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no matching food found", "detail": err.Error()})
	case errors.Is(err, services.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service unavailable", "detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// decodeDataURI returns the raw bytes of a base64 data URI, or nil.
func decodeDataURI(dataURI string) []byte {
	i := strings.IndexByte(dataURI, ',')
	if i < 0 || !strings.HasPrefix(dataURI, "data:image") {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(dataURI[i+1:])
	if err != nil {
		return nil
	}
	return data
}

// latestGlucose returns a reading from the last 15 minutes, if any. Older
// samples say nothing useful about glucose at dosing time.
func latestGlucose(userID uint) *float64 {
	var reading models.GlucoseReading
	err := config.DB.Where("user_id = ? AND measured_at > ?", userID, time.Now().Add(-15*time.Minute)).
		Order("measured_at DESC").First(&reading).Error
	if err != nil {
		return nil
	}
	return &reading.Value
}
