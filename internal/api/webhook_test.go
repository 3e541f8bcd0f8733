package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhook(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		isMessage bool
		want      WebhookMessage
	}{
		{
			name:      "messages array with conversation",
			body:      `{"event":"messages.received","data":{"messages":[{"key":{"remoteJid":"15551234567@s.whatsapp.net","fromMe":false},"message":{"conversation":"hi there"}}]}}`,
			isMessage: true,
			want:      WebhookMessage{Event: EventMessagesReceived, SenderID: "15551234567", Text: "hi there"},
		},
		{
			name:      "messages object with extended text",
			body:      `{"event":"messages.upsert","data":{"messages":{"key":{"remoteJid":"447700900123@c.us"},"message":{"extendedTextMessage":{"text":"link inside"}}}}}`,
			isMessage: true,
			want:      WebhookMessage{Event: EventMessagesUpsert, SenderID: "447700900123", Text: "link inside"},
		},
		{
			name:      "from field wins over remoteJid",
			body:      `{"event":"messages.upsert","data":{"messages":[{"from":"111@s.whatsapp.net","key":{"remoteJid":"222@s.whatsapp.net"},"text":"plain"}]}}`,
			isMessage: true,
			want:      WebhookMessage{Event: EventMessagesUpsert, SenderID: "111", Text: "plain"},
		},
		{
			name:      "data is the message",
			body:      `{"event":"messages.received","data":{"from":"333","body":"from data"}}`,
			isMessage: true,
			want:      WebhookMessage{Event: EventMessagesReceived, SenderID: "333", Text: "from data"},
		},
		{
			name:      "flat body",
			body:      `{"event":"messages.received","from":"444@c.us","text":"flat"}`,
			isMessage: true,
			want:      WebhookMessage{Event: EventMessagesReceived, SenderID: "444", Text: "flat"},
		},
		{
			name:      "own message",
			body:      `{"event":"messages.upsert","data":{"messages":[{"key":{"remoteJid":"555@s.whatsapp.net","fromMe":true},"message":{"conversation":"sent by me"}}]}}`,
			isMessage: true,
			want:      WebhookMessage{Event: EventMessagesUpsert, SenderID: "555", Text: "sent by me", FromMe: true},
		},
		{
			name:      "missing text",
			body:      `{"event":"messages.upsert","data":{"messages":[{"key":{"remoteJid":"555@s.whatsapp.net"},"message":{"imageMessage":{}}}]}}`,
			isMessage: true,
			want:      WebhookMessage{Event: EventMessagesUpsert, SenderID: "555"},
		},
		{
			name: "session status",
			body: `{"event":"session.status","data":{"status":"connected"}}`,
			want: WebhookMessage{Event: EventSessionStatus},
		},
		{
			name: "no event",
			body: `{"from":"1","text":"x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, isMessage, err := ParseWebhook([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.isMessage, isMessage)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWebhook_InvalidJSON(t *testing.T) {
	_, ok, err := ParseWebhook([]byte(`{not json`))
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestWebhook_AcknowledgesAndDispatches(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		body     string
		dispatch bool
	}{
		{"text message", `{"event":"messages.upsert","data":{"messages":[{"key":{"remoteJid":"15551234567@s.whatsapp.net"},"message":{"conversation":"are you free?"}}]}}`, true},
		{"own message", `{"event":"messages.upsert","data":{"messages":[{"key":{"remoteJid":"15551234567@s.whatsapp.net","fromMe":true},"message":{"conversation":"x"}}]}}`, false},
		{"no text", `{"event":"messages.upsert","data":{"messages":[{"key":{"remoteJid":"15551234567@s.whatsapp.net"}}]}}`, false},
		{"session status", `{"event":"session.status","data":{"status":"connected"}}`, false},
		{"garbage", `not json`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(env.relay.calls())
			rec := env.do(http.MethodPost, "/webhook/whatsapp", tt.body)

			assert.Equal(t, http.StatusOK, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "received", body["status"])

			calls := env.relay.calls()
			if !tt.dispatch {
				assert.Len(t, calls, before)
				return
			}
			require.Len(t, calls, before+1)
			assert.Equal(t, dispatched{senderID: "15551234567", text: "are you free?"}, calls[len(calls)-1])
		})
	}
}

func TestWebhook_Health(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/webhook/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestWebhook_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(s *testEnvConfig) { s.server.WebhookRatePerMin = 2 })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/webhook/health", "").Code)
	}
	rec := env.do(http.MethodGet, "/webhook/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	// other clients have their own bucket
	req := httptest.NewRequest(http.MethodGet, "/webhook/health", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	other := httptest.NewRecorder()
	env.handler.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)

	// the admin API is limited separately
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/stats", "").Code)
	assert.True(t, strings.Contains(env.do(http.MethodGet, "/metrics", "").Body.String(), "wa_assistant_pipeline_in_flight"))
}
