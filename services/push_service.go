package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"insulinai-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"gorm.io/gorm"
)

// PushService delivers glucose alerts as mobile push notifications
// through SNS platform endpoints. One endpoint per user.
type PushService struct {
	db             *gorm.DB
	sns            *awssns.Client
	fcmPlatformArn string
}

func NewPushService(db *gorm.DB) (*PushService, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "eu-west-1"
	}
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &PushService{
		db:             db,
		sns:            awssns.NewFromConfig(cfg),
		fcmPlatformArn: os.Getenv("SNS_FCM_ARN"),
	}, nil
}

// RegisterEndpoint exchanges a device token for an SNS endpoint and stores
// the ARN on the user. Registering again replaces the previous endpoint.
func (p *PushService) RegisterEndpoint(userID uint, platform, token string) error {
	switch strings.ToLower(platform) {
	case "android", "ios":
	default:
		return errors.New("unknown platform")
	}
	if p.fcmPlatformArn == "" {
		return errors.New("SNS_FCM_ARN not set")
	}

	out, err := p.sns.CreatePlatformEndpoint(context.TODO(), &awssns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(p.fcmPlatformArn),
		Token:                  aws.String(token),
	})
	if err != nil {
		return err
	}

	return p.db.Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]any{
			"push_endpoint_arn": aws.ToString(out.EndpointArn),
			"push_enabled":      true,
		}).Error
}

// PushToUser publishes a notification to the user's endpoint. Best effort:
// a user without a registered or enabled endpoint is silently skipped.
func (p *PushService) PushToUser(userID uint, title, body string, data map[string]string) {
	var user models.User
	if err := p.db.First(&user, userID).Error; err != nil {
		return
	}
	if !user.PushEnabled || user.PushEndpointARN == "" {
		return
	}

	msg := map[string]any{
		"default": body,
		"GCM": map[string]any{
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": data,
		},
	}

	raw, _ := json.Marshal(msg)
	_, _ = p.sns.Publish(context.TODO(), &awssns.PublishInput{
		MessageStructure: aws.String("json"),
		Message:          aws.String(string(raw)),
		TargetArn:        aws.String(user.PushEndpointARN),
	})
}
