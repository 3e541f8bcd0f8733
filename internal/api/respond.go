package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

// envelope is the admin API response shape
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Str("component", "api").Err(err).Msg("failed to write response")
	}
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{"success": true, "data": data})
}

func writeMessage(w http.ResponseWriter, message string, extra envelope) {
	body := envelope{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": false, "error": message})
}

// writeError maps store errors to status codes
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, repo.ErrNotFound) {
		writeFailure(w, http.StatusNotFound, "not found")
		return
	}
	log.Error().Str("component", "api").Err(err).Msg("request failed")
	writeFailure(w, http.StatusInternalServerError, err.Error())
}
