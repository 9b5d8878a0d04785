package services

import (
	"errors"

	"insulinai-backend/config"
	"insulinai-backend/models"
)

// SettingsInput carries the user-adjustable dosing and integration settings.
// Zero values mean "leave unchanged" for numeric fields.
type SettingsInput struct {
	FullName           string   `json:"full_name"`
	Language           string   `json:"language"`
	CarbRatio          float64  `json:"carb_ratio"`
	CarbRatioBreakfast float64  `json:"carb_ratio_breakfast"`
	CarbRatioLunch     float64  `json:"carb_ratio_lunch"`
	CarbRatioDinner    float64  `json:"carb_ratio_dinner"`
	UseMealRatios      *bool    `json:"use_meal_ratios"`
	CorrectionFactor   float64  `json:"correction_factor"`
	TargetGlucose      float64  `json:"target_glucose"`
	HighThreshold      float64  `json:"high_threshold"`
	LowThreshold       float64  `json:"low_threshold"`
	AnalysisMode       string   `json:"analysis_mode"`
	PushEnabled        *bool    `json:"push_enabled"`
}

func FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := config.DB.First(&user, "email = ?", email).Error; err != nil {
		return nil, errors.New("user not found")
	}
	return &user, nil
}

func GetUserProfile(email string) (map[string]interface{}, error) {
	user, err := FindUserByEmail(email)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":                   user.ID,
		"email":                user.Email,
		"full_name":            user.FullName,
		"language":             user.Language,
		"carb_ratio":           user.CarbRatio,
		"carb_ratio_breakfast": user.CarbRatioBreakfast,
		"carb_ratio_lunch":     user.CarbRatioLunch,
		"carb_ratio_dinner":    user.CarbRatioDinner,
		"use_meal_ratios":      user.UseMealRatios,
		"correction_factor":    user.CorrectionFactor,
		"target_glucose":       user.TargetGlucose,
		"high_threshold":       user.HighThreshold,
		"low_threshold":        user.LowThreshold,
		"analysis_mode":        user.AnalysisMode,
		"libre_linked":         user.LibreEmail != "",
		"push_enabled":         user.PushEnabled,
	}, nil
}

func UpdateUserSettings(email string, input SettingsInput) error {
	var user models.User
	if err := config.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return errors.New("user not found")
	}

	if input.FullName != "" {
		user.FullName = input.FullName
	}
	if input.Language == "en" || input.Language == "it" {
		user.Language = input.Language
	}
	if input.CarbRatio > 0 {
		user.CarbRatio = input.CarbRatio
	}
	if input.CarbRatioBreakfast > 0 {
		user.CarbRatioBreakfast = input.CarbRatioBreakfast
	}
	if input.CarbRatioLunch > 0 {
		user.CarbRatioLunch = input.CarbRatioLunch
	}
	if input.CarbRatioDinner > 0 {
		user.CarbRatioDinner = input.CarbRatioDinner
	}
	if input.UseMealRatios != nil {
		user.UseMealRatios = *input.UseMealRatios
	}
	if input.CorrectionFactor > 0 {
		user.CorrectionFactor = input.CorrectionFactor
	}
	if input.TargetGlucose > 0 {
		user.TargetGlucose = input.TargetGlucose
	}
	if input.HighThreshold > 0 {
		user.HighThreshold = input.HighThreshold
	}
	if input.LowThreshold > 0 {
		user.LowThreshold = input.LowThreshold
	}
	switch input.AnalysisMode {
	case models.ModeDatabaseOnly, models.ModeHybrid, models.ModeAIOnly:
		user.AnalysisMode = input.AnalysisMode
	}
	if input.PushEnabled != nil {
		user.PushEnabled = *input.PushEnabled
	}

	return config.DB.Save(&user).Error
}
