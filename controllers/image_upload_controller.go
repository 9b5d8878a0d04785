package controllers

import (
	"net/http"

	"insulinai-backend/utils"

	"github.com/gin-gonic/gin"
)

type UploadRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

// UploadMealPhoto stores a photo ahead of analysis so clients can attach
// the returned URL when saving the meal.
func UploadMealPhoto(c *gin.Context) {
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	url, err := utils.UploadMealPhoto(req.ImageBase64, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
