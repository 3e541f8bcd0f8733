package repo

import (
	"context"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
)

// CompletionRequest is one stateless chat completion call
type CompletionRequest struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	UserMessage  string
	Temperature  float32
	MaxTokens    int
}

// CompletionRepo talks to the AI completion provider.
// Errors are *domain.ProviderError.
type CompletionRepo interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// DeliveryRequest is one outbound text message
type DeliveryRequest struct {
	APIKey  string
	BaseURL string
	To      string // already normalized
	Text    string
}

// DeliveryRepo talks to the messaging provider.
// Errors are *domain.ProviderError.
type DeliveryRepo interface {
	Send(ctx context.Context, req DeliveryRequest) (*domain.DeliveryResult, error)
	SessionStatus(ctx context.Context, apiKey, baseURL string) (string, error)
}

// NotifyRepo posts operator alerts to a side channel
type NotifyRepo interface {
	Notify(ctx context.Context, text string) error
}
