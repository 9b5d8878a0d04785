package controllers

import (
	"net/http"
	"strconv"

	"insulinai-backend/config"
	"insulinai-backend/services"
	"insulinai-backend/utils"

	"github.com/gin-gonic/gin"
)

// GlucoseController manages the LibreLinkUp link and exposes CGM data.
type GlucoseController struct {
	libre *services.LibreService
}

func NewGlucoseController(libre *services.LibreService) *GlucoseController {
	return &GlucoseController{libre: libre}
}

type LinkInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (gc *GlucoseController) Link(c *gin.Context) {
	var input LinkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := gc.libre.LinkAccount(user, input.Email, input.Password); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "LibreLinkUp link failed", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "LibreLinkUp linked", "patient_id": user.LibrePatientID})
}

func (gc *GlucoseController) Sync(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	inserted, err := gc.libre.SyncUser(user)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "sync failed", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"new_readings": inserted})
}

func (gc *GlucoseController) Readings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	hours, _ := strconv.Atoi(c.DefaultQuery("hours", "24"))
	readings, err := gc.libre.ListReadings(user.ID, hours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(readings))
	for _, r := range readings {
		out = append(out, gin.H{
			"value_mgdl":  r.Value,
			"value_mmol":  utils.MgdlToMmol(r.Value),
			"trend":       r.Trend,
			"high":        r.High,
			"low":         r.Low,
			"measured_at": r.MeasuredAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"readings": out})
}

func (gc *GlucoseController) Alerts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	alerts, err := services.ListAlerts(config.DB, user.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}
