package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	tests := map[string]string{
		"+15551234567":       "+15551234567",
		"15551234567":        "+15551234567",
		"+1 (555) 123-4567":  "+15551234567",
		"1-555-123-4567":     "+15551234567",
		"15551234567@c.us":   "+15551234567",
		"":                   "+",
	}
	for in, want := range tests {
		if got := NormalizePhone(in); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripJID(t *testing.T) {
	if got := StripJID("15551234567@s.whatsapp.net"); got != "15551234567" {
		t.Errorf("Expected suffix stripped, got %q", got)
	}
	if got := StripJID("15551234567@c.us"); got != "15551234567" {
		t.Errorf("Expected suffix stripped, got %q", got)
	}
	if got := StripJID("+15551234567"); got != "+15551234567" {
		t.Errorf("Expected number unchanged, got %q", got)
	}
}

func TestFormatKnowledge(t *testing.T) {
	if got := FormatKnowledge(nil); got != "" {
		t.Errorf("Expected empty string for no entries, got %q", got)
	}

	entries := []*KnowledgeEntry{
		{Title: "Hours", Content: "Open 9-5", Category: "Business"},
		{Title: "Pets", Content: "Two cats", Category: "General"},
	}
	want := "[Business] Hours\nOpen 9-5\n\n---\n\n[General] Pets\nTwo cats"
	if got := FormatKnowledge(entries); got != want {
		t.Errorf("FormatKnowledge() = %q, want %q", got, want)
	}
}

func TestKnowledgeEntry_SearchableText(t *testing.T) {
	e := &KnowledgeEntry{Title: "Vacation", Content: "In MEXICO", Tags: "Travel"}
	if got := e.SearchableText(); got != "vacation in mexico travel" {
		t.Errorf("SearchableText() = %q", got)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	cfgErr := fmt.Errorf("generate: %w", &ConfigurationError{Setting: SettingGrokAPIKey, EnvKey: "GROK_API_KEY"})
	if !IsConfigurationError(cfgErr) {
		t.Error("Expected wrapped ConfigurationError to be detected")
	}
	if KindOf(cfgErr) != "" {
		t.Error("Expected configuration error to carry no provider kind")
	}

	cause := errors.New("boom")
	provErr := fmt.Errorf("send: %w", &ProviderError{Provider: "wasender", Kind: ErrorKindRateLimit, StatusCode: 429, Err: cause})
	if KindOf(provErr) != ErrorKindRateLimit {
		t.Errorf("Expected rate_limit kind, got %q", KindOf(provErr))
	}
	if !errors.Is(provErr, cause) {
		t.Error("Expected provider error to unwrap to its cause")
	}
	if IsConfigurationError(provErr) {
		t.Error("Provider error must not look like a configuration error")
	}
}

func TestKindForStatus(t *testing.T) {
	cases := map[int]ErrorKind{
		401: ErrorKindAuth,
		429: ErrorKindRateLimit,
		504: ErrorKindTimeout,
		500: ErrorKindOther,
		403: ErrorKindOther,
	}
	for status, want := range cases {
		if got := KindForStatus(status); got != want {
			t.Errorf("KindForStatus(%d) = %q, want %q", status, got, want)
		}
	}
}
