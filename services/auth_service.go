package services

import (
	"errors"
	"log"

	"insulinai-backend/config"
	"insulinai-backend/models"
	"insulinai-backend/utils"
)

func RegisterUser(email, password, fullName, language string) error {
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	if language != "it" {
		language = "en"
	}

	user := models.User{
		Email:    email,
		Password: hashedPassword,
		FullName: fullName,
		Language: language,
	}

	if err := config.DB.Create(&user).Error; err != nil {
		return err
	}

	// registration must not fail on mail trouble
	if err := utils.SendWelcomeEmail(email, fullName); err != nil {
		log.Printf("welcome email to %s failed: %v", email, err)
	}
	return nil
}

func AuthenticateUser(email, password string) (string, error) {
	var user models.User
	if err := config.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return "", errors.New("user not found")
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		return "", errors.New("incorrect password")
	}

	return utils.GenerateJWT(user.Email)
}
