package controllers

import (
	"net/http"

	"insulinai-backend/services"

	"github.com/gin-gonic/gin"
)

type PushController struct {
	push *services.PushService
}

func NewPushController(push *services.PushService) *PushController {
	return &PushController{push: push}
}

type RegisterDeviceInput struct {
	Platform string `json:"platform" binding:"required"` // "android" | "ios"
	Token    string `json:"token" binding:"required"`
}

func (pc *PushController) RegisterDevice(c *gin.Context) {
	if pc.push == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications not configured"})
		return
	}

	var input RegisterDeviceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := pc.push.RegisterEndpoint(user.ID, input.Platform, input.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "device registered"})
}
