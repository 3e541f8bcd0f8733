package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

const (
	sendTimeout   = 15 * time.Second
	statusTimeout = 10 * time.Second
)

// DeliveryUsecase sends replies through the messaging provider
type DeliveryUsecase struct {
	delivery repo.DeliveryRepo
	settings *SettingsUsecase
}

// NewDeliveryUsecase creates a new delivery usecase
func NewDeliveryUsecase(delivery repo.DeliveryRepo, settings *SettingsUsecase) *DeliveryUsecase {
	return &DeliveryUsecase{delivery: delivery, settings: settings}
}

func (uc *DeliveryUsecase) credentials(ctx context.Context) (apiKey, baseURL string, err error) {
	apiKey = uc.settings.Get(ctx, domain.SettingWasenderAPIKey)
	if apiKey == "" {
		return "", "", &domain.ConfigurationError{Setting: domain.SettingWasenderAPIKey, EnvKey: "WASENDER_API_KEY"}
	}
	return apiKey, uc.settings.Get(ctx, domain.SettingWasenderAPIURL), nil
}

// Send delivers text to the sender's number. Exactly one attempt is made.
func (uc *DeliveryUsecase) Send(ctx context.Context, senderID, text string) (*domain.DeliveryResult, error) {
	apiKey, baseURL, err := uc.credentials(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	to := domain.NormalizePhone(senderID)
	result, err := uc.delivery.Send(ctx, repo.DeliveryRequest{
		APIKey:  apiKey,
		BaseURL: baseURL,
		To:      to,
		Text:    text,
	})
	if err != nil {
		return nil, fmt.Errorf("send to %s: %w", to, err)
	}
	return result, nil
}

// SessionStatus returns the provider's session status, "connected" when healthy
func (uc *DeliveryUsecase) SessionStatus(ctx context.Context) (string, error) {
	apiKey, baseURL, err := uc.credentials(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	return uc.delivery.SessionStatus(ctx, apiKey, baseURL)
}
