package controllers

import (
	"net/http"
	"strconv"

	"insulinai-backend/services"

	"github.com/gin-gonic/gin"
)

type HistoryController struct {
	history *services.HistoryService
}

func NewHistoryController(history *services.HistoryService) *HistoryController {
	return &HistoryController{history: history}
}

func (hc *HistoryController) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, err := hc.history.List(user.ID, days, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(records))
	for i := range records {
		r := &records[i]
		out = append(out, gin.H{
			"id":                r.ID,
			"description":       r.Description,
			"food_items":        hc.history.Items(r),
			"total_carbs":       r.TotalCarbs,
			"total_fat":         r.TotalFat,
			"total_protein":     r.TotalProtein,
			"suggested_insulin": r.SuggestedInsulin,
			"formula":           r.Formula,
			"confidence_level":  r.ConfidenceLevel,
			"meal_period":       r.MealPeriod,
			"photo_url":         r.PhotoURL,
			"pre_glucose":       r.PreGlucose,
			"post_glucose":      r.PostGlucose,
			"ate_at":            r.AteAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

func (hc *HistoryController) Get(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	record, err := hc.history.Get(user.ID, uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                record.ID,
		"description":       record.Description,
		"food_items":        hc.history.Items(record),
		"total_carbs":       record.TotalCarbs,
		"total_fat":         record.TotalFat,
		"total_protein":     record.TotalProtein,
		"suggested_insulin": record.SuggestedInsulin,
		"formula":           record.Formula,
		"confidence_level":  record.ConfidenceLevel,
		"meal_period":       record.MealPeriod,
		"photo_url":         record.PhotoURL,
		"pre_glucose":       record.PreGlucose,
		"post_glucose":      record.PostGlucose,
		"ate_at":            record.AteAt,
	})
}

type PostGlucoseInput struct {
	Value float64 `json:"value" binding:"required,gt=0"`
}

func (hc *HistoryController) SetPostGlucose(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var input PostGlucoseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := hc.history.SetPostGlucose(user.ID, uint(id), input.Value); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post-meal glucose recorded"})
}

func (hc *HistoryController) Delete(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := hc.history.Delete(user.ID, uint(id)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
