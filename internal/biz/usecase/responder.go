package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

const (
	fallbackSystemPrompt = "You are ME. Write as I would write."
	knowledgeInstruction = "Use this information naturally in my responses when relevant. Respond as if I am texting them myself."

	// MaxReplyTokens caps every generated reply
	MaxReplyTokens = 500

	completionTimeout = 30 * time.Second

	pingMessage = "Hello, this is a test message."
	pingPrompt  = `Reply with just "OK" if you receive this.`
)

// GenerateRequest is everything the responder needs for one reply
type GenerateRequest struct {
	UserMessage      string
	KnowledgeContext string
	SystemPrompt     string
	Temperature      float64
	Persona          domain.Persona
}

// ResponderUsecase drafts replies with the AI completion provider
type ResponderUsecase struct {
	completion repo.CompletionRepo
	settings   *SettingsUsecase
	timeout    time.Duration
}

// NewResponderUsecase creates a new responder usecase
func NewResponderUsecase(completion repo.CompletionRepo, settings *SettingsUsecase) *ResponderUsecase {
	return &ResponderUsecase{
		completion: completion,
		settings:   settings,
		timeout:    completionTimeout,
	}
}

// BuildSystemPrompt assembles the system turn from the base prompt, the
// non-empty persona fields and the knowledge block
func BuildSystemPrompt(systemPrompt, knowledgeContext string, persona domain.Persona) string {
	var sb strings.Builder
	if systemPrompt != "" {
		sb.WriteString(systemPrompt)
	} else {
		sb.WriteString(fallbackSystemPrompt)
	}

	if persona.Name != "" {
		sb.WriteString("\n\nMy name is: " + persona.Name)
	}
	if persona.Personality != "" {
		sb.WriteString("\n\nMy personality: " + persona.Personality)
	}
	if persona.WritingStyle != "" {
		sb.WriteString("\n\nMy writing style: " + persona.WritingStyle)
	}
	if persona.CommonPhrases != "" {
		sb.WriteString("\n\nPhrases I commonly use: " + persona.CommonPhrases)
	}

	if knowledgeContext != "" {
		sb.WriteString("\n\n=== MY KNOWLEDGE/INFO ===\n")
		sb.WriteString(knowledgeContext)
		sb.WriteString("\n=== END KNOWLEDGE ===\n\n")
		sb.WriteString(knowledgeInstruction)
	}
	return sb.String()
}

// Generate produces one reply. It fails with *domain.ConfigurationError when
// no API key is configured and *domain.ProviderError when the provider call fails.
func (uc *ResponderUsecase) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	apiKey := uc.settings.Get(ctx, domain.SettingGrokAPIKey)
	if apiKey == "" {
		return "", &domain.ConfigurationError{Setting: domain.SettingGrokAPIKey, EnvKey: "GROK_API_KEY"}
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	reply, err := uc.completion.Complete(ctx, repo.CompletionRequest{
		APIKey:       apiKey,
		BaseURL:      uc.settings.Get(ctx, domain.SettingGrokAPIURL),
		Model:        uc.settings.Get(ctx, domain.SettingGrokModel),
		SystemPrompt: BuildSystemPrompt(req.SystemPrompt, req.KnowledgeContext, req.Persona),
		UserMessage:  req.UserMessage,
		Temperature:  float32(req.Temperature),
		MaxTokens:    MaxReplyTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return reply, nil
}

// Ping sends a fixed test prompt and returns the provider's answer
func (uc *ResponderUsecase) Ping(ctx context.Context) (string, error) {
	return uc.Generate(ctx, GenerateRequest{
		UserMessage:  pingMessage,
		SystemPrompt: pingPrompt,
		Temperature:  0.1,
	})
}
