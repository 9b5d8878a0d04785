package models

import (
	"time"

	"gorm.io/gorm"
)

// Analysis modes selectable per user.
const (
	ModeDatabaseOnly = "database_only"
	ModeHybrid       = "hybrid"
	ModeAIOnly       = "ai_only"
)

type User struct {
	gorm.Model
	Email    string `gorm:"uniqueIndex;not null"`
	Password string `gorm:"not null"`
	FullName string
	Language string `gorm:"default:en"` // "en" | "it"

	// Dosing configuration
	CarbRatio          float64 `gorm:"default:10"` // grams of carbs per insulin unit
	CarbRatioBreakfast float64 `gorm:"default:8"`
	CarbRatioLunch     float64 `gorm:"default:10"`
	CarbRatioDinner    float64 `gorm:"default:12"`
	UseMealRatios      bool
	CorrectionFactor   float64 `gorm:"default:50"`
	TargetGlucose      float64 `gorm:"default:110"` // mg/dL
	HighThreshold      float64 `gorm:"default:180"`
	LowThreshold       float64 `gorm:"default:70"`
	AnalysisMode       string  `gorm:"default:hybrid"`

	// LibreLinkUp link (CGM)
	LibreEmail     string
	LibrePassword  string
	LibreRegion    string
	LibrePatientID string

	// Push notifications
	PushEndpointARN string
	PushEnabled     bool
}

// ResolveCarbRatio returns the ratio for the given meal period, falling back
// to the flat ratio when per-meal ratios are disabled or the period is unknown.
func (u *User) ResolveCarbRatio(mealPeriod string) float64 {
	if !u.UseMealRatios {
		return u.CarbRatio
	}
	switch mealPeriod {
	case "breakfast":
		return u.CarbRatioBreakfast
	case "lunch":
		return u.CarbRatioLunch
	case "dinner":
		return u.CarbRatioDinner
	}
	return u.CarbRatio
}

// CurrentMealPeriod maps a clock time to the meal period used for per-meal
// ratios when the client does not say which meal this is.
func CurrentMealPeriod(t time.Time) string {
	switch hour := t.Hour(); {
	case hour >= 5 && hour < 11:
		return "breakfast"
	case hour >= 11 && hour < 16:
		return "lunch"
	default:
		return "dinner"
	}
}
