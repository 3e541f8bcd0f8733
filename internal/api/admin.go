package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
)

const (
	defaultMessageLimit       = 100
	defaultSenderMessageLimit = 50
	maxAdminBody              = 1 << 20
)

var clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// settingRules are validator tags for settings the admin may change.
// Keys without a rule are accepted as free text.
var settingRules = map[string]string{
	domain.SettingAutoReplyEnabled: "oneof=true false",
	domain.SettingResponseDelay:    "delay",
	domain.SettingActiveHoursStart: "clock",
	domain.SettingActiveHoursEnd:   "clock",
	domain.SettingResponseMode:     "oneof=always smart manual",
	domain.SettingAITemperature:    "unitfloat",
}

// newValidator registers the custom tags used by admin requests
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("delay", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		return err == nil && n >= 0 && n <= 300
	})
	_ = v.RegisterValidation("unitfloat", func(fl validator.FieldLevel) bool {
		f, err := strconv.ParseFloat(fl.Field().String(), 64)
		return err == nil && f >= 0 && f <= 1
	})
	return v
}

// fieldError is one entry of a 400 validation response
type fieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func writeValidation(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusBadRequest, envelope{
		"success": false,
		"error":   "validation failed",
		"errors":  errs,
	})
}

func validationErrors(err error) []fieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []fieldError{{Message: err.Error()}}
	}
	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()),
		})
	}
	return out
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAdminBody))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func queryLimit(r *http.Request, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// ========== Knowledge ==========

type knowledgeRequest struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Category string `json:"category"`
	Tags     string `json:"tags"`
}

func (s *Server) knowledgeEntry(w http.ResponseWriter, r *http.Request) (*domain.KnowledgeEntry, bool) {
	var req knowledgeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.Category = strings.TrimSpace(req.Category)
	req.Tags = strings.TrimSpace(req.Tags)
	if err := s.validate.Struct(req); err != nil {
		writeValidation(w, validationErrors(err))
		return nil, false
	}
	return &domain.KnowledgeEntry{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Tags:     req.Tags,
	}, true
}

func knowledgeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeValidation(w, []fieldError{{Field: "id", Rule: "int", Message: "Invalid ID"}})
		return 0, false
	}
	return id, true
}

func (s *Server) listKnowledge(w http.ResponseWriter, r *http.Request) {
	entries, err := s.knowledge.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, entries)
}

func (s *Server) searchKnowledge(w http.ResponseWriter, r *http.Request) {
	entries, err := s.knowledge.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, entries)
}

func (s *Server) getKnowledge(w http.ResponseWriter, r *http.Request) {
	id, ok := knowledgeID(w, r)
	if !ok {
		return
	}
	entry, err := s.knowledge.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, entry)
}

func (s *Server) createKnowledge(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.knowledgeEntry(w, r)
	if !ok {
		return
	}
	created, err := s.knowledge.Create(r.Context(), entry)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, "Knowledge entry created successfully", envelope{"id": created.ID, "data": created})
}

func (s *Server) updateKnowledge(w http.ResponseWriter, r *http.Request) {
	id, ok := knowledgeID(w, r)
	if !ok {
		return
	}
	entry, ok := s.knowledgeEntry(w, r)
	if !ok {
		return
	}
	entry.ID = id
	updated, err := s.knowledge.Update(r.Context(), entry)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, "Knowledge entry updated successfully", envelope{"data": updated})
}

func (s *Server) deleteKnowledge(w http.ResponseWriter, r *http.Request) {
	id, ok := knowledgeID(w, r)
	if !ok {
		return
	}
	if err := s.knowledge.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, "Knowledge entry deleted successfully", nil)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.knowledge.Categories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, categories)
}

func (s *Server) knowledgeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.knowledge.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, stats)
}

// ========== Settings ==========

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.settings.GetAll(r.Context()))
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeBody(w, r, &body); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	values := make(map[string]string, len(body))
	var errs []fieldError
	for key, raw := range body {
		value, ok := scalarString(raw)
		if !ok {
			errs = append(errs, fieldError{Field: key, Rule: "scalar", Message: key + " must be a string, number or boolean"})
			continue
		}
		if key == domain.SettingSystemPrompt {
			value = strings.TrimSpace(value)
		}
		if rule, ok := settingRules[key]; ok {
			if err := s.validate.Var(value, rule); err != nil {
				errs = append(errs, fieldError{Field: key, Rule: rule, Message: fmt.Sprintf("%s is invalid (%s)", key, rule)})
				continue
			}
		}
		values[key] = value
	}
	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
		writeValidation(w, errs)
		return
	}

	if err := s.settings.SetMany(r.Context(), values); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, "Settings updated successfully", nil)
}

// scalarString renders a decoded JSON scalar the way it is stored
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case nil:
		return "", true
	}
	return "", false
}

// ========== Messages ==========

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	records, err := s.messages.List(r.Context(), queryLimit(r, defaultMessageLimit))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, records)
}

func (s *Server) listSenderMessages(w http.ResponseWriter, r *http.Request) {
	records, err := s.messages.ListBySender(r.Context(), chi.URLParam(r, "sender"), queryLimit(r, defaultSenderMessageLimit))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, records)
}

func (s *Server) messageStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.messages.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, stats)
}

// ========== Whitelist ==========

type whitelistRequest struct {
	SenderID string `json:"phone_number" validate:"required"`
	Name     string `json:"name"`
	Notes    string `json:"notes"`
}

func (s *Server) listWhitelist(w http.ResponseWriter, r *http.Request) {
	entries, err := s.whitelist.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, entries)
}

func (s *Server) checkWhitelist(w http.ResponseWriter, r *http.Request) {
	ok, err := s.whitelist.IsWhitelisted(r.Context(), chi.URLParam(r, "sender"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "whitelisted": ok})
}

func (s *Server) addWhitelist(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SenderID = domain.StripJID(strings.TrimSpace(req.SenderID))
	if err := s.validate.Struct(req); err != nil {
		writeValidation(w, validationErrors(err))
		return
	}

	created, err := s.whitelist.Add(r.Context(), &domain.WhitelistEntry{
		SenderID: req.SenderID,
		Name:     req.Name,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if !created {
		writeMessage(w, "Number already whitelisted", envelope{"alreadyExists": true})
		return
	}
	writeMessage(w, "Number added to whitelist successfully", nil)
}

func (s *Server) updateWhitelist(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.whitelist.Update(r.Context(), chi.URLParam(r, "sender"), req.Name, req.Notes); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, "Whitelist entry updated successfully", nil)
}

func (s *Server) removeWhitelist(w http.ResponseWriter, r *http.Request) {
	if err := s.whitelist.Remove(r.Context(), chi.URLParam(r, "sender")); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, "Number removed from whitelist successfully", nil)
}
