package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCategory is used when a knowledge entry has no category
const DefaultCategory = "General"

// KnowledgeSeparator joins formatted entries in the AI context block
const KnowledgeSeparator = "\n\n---\n\n"

// KnowledgeEntry is a titled, categorized and tagged passage
type KnowledgeEntry struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Tags      string    `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchableText returns the lowercased text keyword matching runs against
func (e *KnowledgeEntry) SearchableText() string {
	return strings.ToLower(e.Title + " " + e.Content + " " + e.Tags)
}

// Format renders the entry for the AI context block
func (e *KnowledgeEntry) Format() string {
	return fmt.Sprintf("[%s] %s\n%s", e.Category, e.Title, e.Content)
}

// FormatKnowledge renders entries joined by the separator
func FormatKnowledge(entries []*KnowledgeEntry) string {
	if len(entries) == 0 {
		return ""
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Format()
	}
	return strings.Join(parts, KnowledgeSeparator)
}

// KnowledgeStats summarizes the knowledge base
type KnowledgeStats struct {
	TotalEntries int        `json:"totalEntries"`
	Categories   int        `json:"categories"`
	LastUpdated  *time.Time `json:"lastUpdated"`
}
