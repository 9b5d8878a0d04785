package services

import (
	"time"

	"insulinai-backend/models"
	"insulinai-backend/utils"

	"gorm.io/gorm"
)

// DayReport aggregates one calendar day of meals and glucose.
type DayReport struct {
	Date         string  `json:"date"` // YYYY-MM-DD
	Meals        int     `json:"meals"`
	TotalCarbs   float64 `json:"total_carbs"`
	TotalInsulin float64 `json:"total_insulin"`
	GlucoseAvg   float64 `json:"glucose_avg"`
	GlucoseMin   float64 `json:"glucose_min"`
	GlucoseMax   float64 `json:"glucose_max"`
	Readings     int     `json:"readings"`
}

// Report is an N-day summary for the user or their clinician.
type Report struct {
	Days           []DayReport `json:"days"`
	AvgDailyCarbs  float64     `json:"avg_daily_carbs"`
	AvgDailyUnits  float64     `json:"avg_daily_units"`
	AvgPreGlucose  float64     `json:"avg_pre_glucose"`  // mg/dL at dosing time
	AvgPostGlucose float64     `json:"avg_post_glucose"` // mg/dL ~2h after meals
	TimeInRangePct float64     `json:"time_in_range_pct"`
}

type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// Build summarizes the last N days, one entry per day including days with
// no data - gaps matter when reviewing dosing patterns.
func (s *ReportService) Build(user *models.User, days int) (*Report, error) {
	if days <= 0 || days > 90 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days+1)
	dayStart := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, since.Location())

	var records []models.AnalysisRecord
	if err := s.db.Where("user_id = ? AND ate_at >= ?", user.ID, dayStart).
		Order("ate_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	var readings []models.GlucoseReading
	if err := s.db.Where("user_id = ? AND measured_at >= ?", user.ID, dayStart).
		Order("measured_at ASC").Find(&readings).Error; err != nil {
		return nil, err
	}

	byDay := map[string]*DayReport{}
	var order []string
	for i := 0; i < days; i++ {
		date := dayStart.AddDate(0, 0, i).Format("2006-01-02")
		byDay[date] = &DayReport{Date: date}
		order = append(order, date)
	}

	var preSum, postSum float64
	var preN, postN int
	for _, r := range records {
		if r.PreGlucose != nil {
			preSum += *r.PreGlucose
			preN++
		}
		if r.PostGlucose != nil {
			postSum += *r.PostGlucose
			postN++
		}
		day, ok := byDay[r.AteAt.Format("2006-01-02")]
		if !ok {
			continue
		}
		day.Meals++
		day.TotalCarbs += r.TotalCarbs
		day.TotalInsulin += r.SuggestedInsulin
	}

	inRange := 0
	for _, g := range readings {
		day, ok := byDay[g.MeasuredAt.Format("2006-01-02")]
		if !ok {
			continue
		}
		if day.Readings == 0 || g.Value < day.GlucoseMin {
			day.GlucoseMin = g.Value
		}
		if g.Value > day.GlucoseMax {
			day.GlucoseMax = g.Value
		}
		day.GlucoseAvg += g.Value
		day.Readings++
		if g.Value >= user.LowThreshold && g.Value <= user.HighThreshold {
			inRange++
		}
	}

	report := &Report{}
	var carbSum, unitSum float64
	for _, date := range order {
		day := byDay[date]
		if day.Readings > 0 {
			day.GlucoseAvg = utils.Round1(day.GlucoseAvg / float64(day.Readings))
		}
		day.TotalCarbs = utils.Round1(day.TotalCarbs)
		day.TotalInsulin = utils.Round1(day.TotalInsulin)
		carbSum += day.TotalCarbs
		unitSum += day.TotalInsulin
		report.Days = append(report.Days, *day)
	}
	report.AvgDailyCarbs = utils.Round1(carbSum / float64(days))
	report.AvgDailyUnits = utils.Round1(unitSum / float64(days))
	if preN > 0 {
		report.AvgPreGlucose = utils.Round1(preSum / float64(preN))
	}
	if postN > 0 {
		report.AvgPostGlucose = utils.Round1(postSum / float64(postN))
	}
	if len(readings) > 0 {
		report.TimeInRangePct = utils.Round1(100 * float64(inRange) / float64(len(readings)))
	}
	return report, nil
}
