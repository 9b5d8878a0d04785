package models

import (
	"time"

	"gorm.io/gorm"
)

// GlucoseReading is one CGM sample pulled from LibreLinkUp.
type GlucoseReading struct {
	gorm.Model
	UserID     uint    `gorm:"index:idx_user_measured,unique"`
	Value      float64 // mg/dL
	Trend      int     // 1=falling … 5=rising, 0=unknown
	High       bool
	Low        bool
	MeasuredAt time.Time `gorm:"index:idx_user_measured,unique"`
}
