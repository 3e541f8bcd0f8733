package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
)

const maxWebhookBody = 1 << 20

// Webhook event names sent by the messaging provider
const (
	EventMessagesReceived = "messages.received"
	EventMessagesUpsert   = "messages.upsert"
	EventSessionStatus    = "session.status"
)

// WebhookMessage is the inbound message extracted from a webhook payload
type WebhookMessage struct {
	Event    string
	SenderID string // JID suffix stripped
	Text     string
	FromMe   bool
}

// ParseWebhook extracts the sender and text from a provider payload. The
// message object is data.messages[0], data.messages, data, or the body itself,
// whichever exists first. ok is false for events that carry no message.
func ParseWebhook(body []byte) (msg WebhookMessage, ok bool, err error) {
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return msg, false, fmt.Errorf("invalid webhook payload: %w", err)
	}

	msg.Event = str(root["event"])
	if msg.Event != EventMessagesReceived && msg.Event != EventMessagesUpsert {
		return msg, false, nil
	}

	data := obj(root["data"])
	var message map[string]any
	switch m := data["messages"].(type) {
	case []any:
		if len(m) > 0 {
			message = obj(m[0])
		}
	case map[string]any:
		message = m
	}
	if message == nil {
		message = data
	}
	if message == nil {
		message = root
	}

	key := obj(message["key"])
	inner := obj(message["message"])

	sender := firstNonEmpty(str(message["from"]), str(key["remoteJid"]), str(root["from"]))
	msg.Text = firstNonEmpty(
		str(inner["conversation"]),
		str(obj(inner["extendedTextMessage"])["text"]),
		str(message["text"]),
		str(message["body"]),
		str(root["text"]),
		str(root["body"]),
	)
	msg.FromMe = truthy(key["fromMe"]) || truthy(message["fromMe"])
	msg.SenderID = domain.StripJID(sender)
	return msg, true, nil
}

// handleWebhook acknowledges immediately, then dispatches valid inbound
// messages. The provider always gets 200 so it never retries.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, readErr := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	logger := log.With().Str("component", "webhook").Logger()
	if readErr != nil {
		logger.Warn().Err(readErr).Msg("failed to read webhook body")
		s.metrics.WebhookEvent("", "invalid")
		return
	}

	msg, isMessage, err := ParseWebhook(body)
	if err != nil {
		logger.Warn().Err(err).Msg("ignoring webhook")
		s.metrics.WebhookEvent("", "invalid")
		return
	}

	if !isMessage {
		if msg.Event == EventSessionStatus {
			logger.Info().RawJSON("payload", body).Msg("session status update")
		} else {
			logger.Info().Str("event", msg.Event).Msg("webhook event ignored")
		}
		s.metrics.WebhookEvent(msg.Event, "ignored")
		return
	}

	switch {
	case msg.SenderID == "" || msg.Text == "":
		logger.Warn().Str("event", msg.Event).Msg("webhook message missing sender or text")
		s.metrics.WebhookEvent(msg.Event, "invalid")
	case msg.FromMe:
		logger.Debug().Str("sender", msg.SenderID).Msg("skipping message sent by us")
		s.metrics.WebhookEvent(msg.Event, "skipped")
	default:
		logger.Info().Str("sender", msg.SenderID).Msg("processing incoming message")
		s.metrics.WebhookEvent(msg.Event, "dispatched")
		s.relay.Dispatch(r.Context(), msg.SenderID, msg.Text)
	}
}

func (s *Server) handleWebhookHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func obj(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
