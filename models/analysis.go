package models

import (
	"time"

	"gorm.io/gorm"
)

// Confidence levels reported alongside an analysis. Informational only:
// dose calculation treats all levels identically.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// FoodItemEstimate is one recognized food within an analysis.
type FoodItemEstimate struct {
	Name         string  `json:"name"`
	Carbs        float64 `json:"carbs"`
	Fat          float64 `json:"fat"`
	Protein      float64 `json:"protein"`
	ApproxWeight string  `json:"approx_weight"`
}

// SplitBolus advises splitting a dose for slow-digesting meals. The decision
// itself is derived from fat/protein thresholds, never from free-form AI text.
type SplitBolus struct {
	Recommended     bool   `json:"recommended"`
	SplitPercentage string `json:"split_percentage"`
	Duration        string `json:"duration"`
	Reason          string `json:"reason"`
}

// AnalysisResult is the canonical outcome of one meal analysis, whether it
// came from a database match, an AI estimate, or a blend of the two.
type AnalysisResult struct {
	FriendlyDescription string             `json:"friendly_description"`
	FoodItems           []FoodItemEstimate `json:"food_items"`
	TotalCarbs          float64            `json:"total_carbs"`
	TotalFat            float64            `json:"total_fat"`
	TotalProtein        float64            `json:"total_protein"`
	SuggestedInsulin    float64            `json:"suggested_insulin"`
	SplitBolus          SplitBolus         `json:"split_bolus_recommendation"`
	Reasoning           []string           `json:"reasoning"`
	CalculationFormula  string             `json:"calculation_formula"`
	Sources             []string           `json:"sources"`
	ConfidenceLevel     string             `json:"confidence_level"`
	MissingInfo         *string            `json:"missing_info"`
	Warnings            []string           `json:"warnings"`
}

// AnalysisRecord is a persisted history entry for one analyzed meal.
type AnalysisRecord struct {
	gorm.Model
	UserID uint `gorm:"index"`

	Description      string
	ItemsJSON        string // marshalled []FoodItemEstimate
	TotalCarbs       float64
	TotalFat         float64
	TotalProtein     float64
	SuggestedInsulin float64
	Formula          string
	ConfidenceLevel  string
	MealPeriod       string // breakfast | lunch | dinner
	PhotoURL         string

	PreGlucose  *float64 // mg/dL at dosing time, if known
	PostGlucose *float64 // mg/dL ~2h later, filled in afterwards

	AteAt time.Time
}
