package services

import (
	"encoding/json"
	"errors"
	"time"

	"insulinai-backend/models"

	"gorm.io/gorm"
)

// HistoryService persists analyzed meals and their glucose follow-ups.
type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// SaveAnalysis stores a finalized analysis as a history entry. Pending
// analyses (missing_info still set) are not recorded.
func (s *HistoryService) SaveAnalysis(userID uint, result *models.AnalysisResult, mealPeriod, photoURL string, preGlucose *float64) (*models.AnalysisRecord, error) {
	if result.MissingInfo != nil {
		return nil, errors.New("analysis still awaiting quantity input")
	}

	itemsJSON, err := json.Marshal(result.FoodItems)
	if err != nil {
		return nil, err
	}

	record := &models.AnalysisRecord{
		UserID:           userID,
		Description:      result.FriendlyDescription,
		ItemsJSON:        string(itemsJSON),
		TotalCarbs:       result.TotalCarbs,
		TotalFat:         result.TotalFat,
		TotalProtein:     result.TotalProtein,
		SuggestedInsulin: result.SuggestedInsulin,
		Formula:          result.CalculationFormula,
		ConfidenceLevel:  result.ConfidenceLevel,
		MealPeriod:       mealPeriod,
		PhotoURL:         photoURL,
		PreGlucose:       preGlucose,
		AteAt:            time.Now(),
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// List returns the user's history newest first, optionally bounded to the
// last N days.
func (s *HistoryService) List(userID uint, days, limit int) ([]models.AnalysisRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.Where("user_id = ?", userID)
	if days > 0 {
		q = q.Where("ate_at > ?", time.Now().AddDate(0, 0, -days))
	}
	var records []models.AnalysisRecord
	err := q.Order("ate_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// Get fetches one entry, scoped to its owner.
func (s *HistoryService) Get(userID, recordID uint) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	if err := s.db.Where("id = ? AND user_id = ?", recordID, userID).First(&record).Error; err != nil {
		return nil, errors.New("history entry not found")
	}
	return &record, nil
}

// SetPostGlucose records the ~2h follow-up reading on an entry. The entry
// must belong to the calling user.
func (s *HistoryService) SetPostGlucose(userID, recordID uint, value float64) error {
	res := s.db.Model(&models.AnalysisRecord{}).
		Where("id = ? AND user_id = ?", recordID, userID).
		Update("post_glucose", value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("history entry not found")
	}
	return nil
}

func (s *HistoryService) Delete(userID, recordID uint) error {
	res := s.db.Where("id = ? AND user_id = ?", recordID, userID).
		Delete(&models.AnalysisRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("history entry not found")
	}
	return nil
}

// Items unmarshals a record's stored food items.
func (s *HistoryService) Items(record *models.AnalysisRecord) []models.FoodItemEstimate {
	var items []models.FoodItemEstimate
	_ = json.Unmarshal([]byte(record.ItemsJSON), &items)
	return items
}
