package data

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

const grokProvider = "grok"

// grokRepo implements the completion repository against the xAI
// OpenAI-compatible chat completions API
type grokRepo struct {
	httpClient *http.Client
}

// NewGrokRepo creates a completion repository. httpClient may be nil.
func NewGrokRepo(httpClient *http.Client) repo.CompletionRepo {
	return &grokRepo{httpClient: httpClient}
}

func (r *grokRepo) client(apiKey, baseURL string) *openai.Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		// accept the full endpoint URL too
		baseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/chat/completions")
		config.BaseURL = baseURL
	}
	if r.httpClient != nil {
		config.HTTPClient = r.httpClient
	}
	return openai.NewClientWithConfig(config)
}

// Complete sends one system turn and one user turn and returns the reply
func (r *grokRepo) Complete(ctx context.Context, req repo.CompletionRequest) (string, error) {
	temperature := req.Temperature
	if temperature == 0 {
		// zero is dropped from the request body as an empty field
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := r.client(req.APIKey, req.BaseURL).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserMessage},
		},
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", grokError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", &domain.ProviderError{Provider: grokProvider, Kind: domain.ErrorKindOther, Message: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

func grokError(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{
			Provider:   grokProvider,
			Kind:       domain.KindForStatus(apiErr.HTTPStatusCode),
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &domain.ProviderError{
			Provider:   grokProvider,
			Kind:       domain.KindForStatus(reqErr.HTTPStatusCode),
			StatusCode: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}
	if isTimeout(ctx, err) {
		return &domain.ProviderError{Provider: grokProvider, Kind: domain.ErrorKindTimeout, Err: err}
	}
	return &domain.ProviderError{Provider: grokProvider, Kind: domain.ErrorKindOther, Err: err}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
