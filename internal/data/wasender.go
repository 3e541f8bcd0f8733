package data

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

const (
	wasenderProvider = "wasender"
	maxResponseBody  = 1 << 20
)

// wasenderRepo implements the delivery repository against the Wasender REST API
type wasenderRepo struct {
	httpClient *http.Client
}

// NewWasenderRepo creates a delivery repository. httpClient may be nil.
func NewWasenderRepo(httpClient *http.Client) repo.DeliveryRepo {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &wasenderRepo{httpClient: httpClient}
}

type sendMessageRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type wasenderResponse struct {
	ID      json.RawMessage `json:"id"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    *struct {
		ID     json.RawMessage `json:"id"`
		Status string          `json:"status"`
	} `json:"data"`
}

// Send posts one text message. Exactly one attempt is made.
func (r *wasenderRepo) Send(ctx context.Context, req repo.DeliveryRequest) (*domain.DeliveryResult, error) {
	body, err := json.Marshal(sendMessageRequest{To: req.To, Text: req.Text})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(req.BaseURL, "send-message"), bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ProviderError{Provider: wasenderProvider, Kind: domain.ErrorKindOther, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	parsed, err := r.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	result := &domain.DeliveryResult{}
	if parsed.Data != nil {
		result.ProviderMessageID = rawID(parsed.Data.ID)
	}
	if result.ProviderMessageID == "" {
		result.ProviderMessageID = rawID(parsed.ID)
	}
	return result, nil
}

// SessionStatus reads the provider session status
func (r *wasenderRepo) SessionStatus(ctx context.Context, apiKey, baseURL string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint(baseURL, "status"), nil)
	if err != nil {
		return "", &domain.ProviderError{Provider: wasenderProvider, Kind: domain.ErrorKindOther, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	parsed, err := r.do(ctx, httpReq)
	if err != nil {
		return "", err
	}
	if parsed.Status == "" && parsed.Data != nil {
		return parsed.Data.Status, nil
	}
	return parsed.Status, nil
}

func (r *wasenderRepo) do(ctx context.Context, httpReq *http.Request) (*wasenderResponse, error) {
	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		kind := domain.ErrorKindOther
		if isTimeout(ctx, err) {
			kind = domain.ErrorKindTimeout
		}
		return nil, &domain.ProviderError{Provider: wasenderProvider, Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		kind := domain.ErrorKindOther
		if isTimeout(ctx, err) {
			kind = domain.ErrorKindTimeout
		}
		return nil, &domain.ProviderError{Provider: wasenderProvider, Kind: kind, StatusCode: resp.StatusCode, Err: err}
	}

	var parsed wasenderResponse
	// non-JSON bodies are tolerated; only the status code is authoritative
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := parsed.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &domain.ProviderError{
			Provider:   wasenderProvider,
			Kind:       domain.KindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}
	return &parsed, nil
}

func endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/" + path
}

// rawID renders a JSON string or number id as text
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}
