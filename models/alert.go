package models

import "gorm.io/gorm"

// Alert records an out-of-range glucose event pushed to the user.
type Alert struct {
	gorm.Model
	UserID  uint   `gorm:"index"`
	Type    string // "low_glucose" | "high_glucose"
	Message string
	Value   float64 // the reading that triggered it, mg/dL
}
