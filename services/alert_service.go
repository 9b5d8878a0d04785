package services

import (
	"fmt"
	"time"

	"insulinai-backend/models"
	"insulinai-backend/utils"

	"gorm.io/gorm"
)

// Out-of-range readings re-alert at most once per cooldown window so a
// long hypo does not spam the user's phone every sync.
const alertCooldown = 30 * time.Minute

type alertDeps struct {
	db *gorm.DB
	rt *RealtimeHub
	ps *PushService
}

var _alert alertDeps

func InitAlertDeps(db *gorm.DB, rt *RealtimeHub, ps *PushService) {
	_alert = alertDeps{db: db, rt: rt, ps: ps}
}

// EvaluateReading checks one CGM sample against the user's thresholds and
// emits a low/high alert when it is out of range. Safe to call anywhere.
func EvaluateReading(user *models.User, reading *models.GlucoseReading) {
	if _alert.db == nil {
		return
	}

	var typ, message string
	switch {
	case reading.Value < user.LowThreshold:
		typ = "low_glucose"
		message = fmt.Sprintf("Glucose low: %.0f mg/dL (%.1f mmol/L)",
			reading.Value, utils.MgdlToMmol(reading.Value))
	case reading.Value > user.HighThreshold:
		typ = "high_glucose"
		message = fmt.Sprintf("Glucose high: %.0f mg/dL (%.1f mmol/L)",
			reading.Value, utils.MgdlToMmol(reading.Value))
	default:
		return
	}

	var recent models.Alert
	err := _alert.db.Where("user_id = ? AND type = ? AND created_at > ?",
		user.ID, typ, time.Now().Add(-alertCooldown)).First(&recent).Error
	if err == nil {
		return // still inside the cooldown window
	}

	a := &models.Alert{UserID: user.ID, Type: typ, Message: message, Value: reading.Value}
	_ = _alert.db.Create(a).Error

	if _alert.rt != nil {
		_alert.rt.Broadcast(user.ID, "alert.created", a)
	}
	if _alert.ps != nil {
		title := "High Glucose"
		if typ == "low_glucose" {
			title = "Low Glucose"
		}
		_alert.ps.PushToUser(user.ID, title, message, map[string]string{
			"type": typ, "alertId": fmt.Sprintf("%d", a.ID),
		})
	}
}

// ListAlerts returns the user's most recent alerts, newest first.
func ListAlerts(db *gorm.DB, userID uint, limit int) ([]models.Alert, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var alerts []models.Alert
	err := db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&alerts).Error
	return alerts, err
}
