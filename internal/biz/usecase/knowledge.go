package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

const (
	// tokens of this many runes or fewer are ignored
	minTokenRunes = 3
	maxRelevant   = 5
	fallbackCount = 3
)

// KnowledgeUsecase selects knowledge entries for a message and manages the knowledge base
type KnowledgeUsecase struct {
	knowledgeRepo repo.KnowledgeRepo
}

// NewKnowledgeUsecase creates a new knowledge usecase
func NewKnowledgeUsecase(knowledgeRepo repo.KnowledgeRepo) *KnowledgeUsecase {
	return &KnowledgeUsecase{knowledgeRepo: knowledgeRepo}
}

// Tokenize lowercases the query, splits on whitespace and keeps distinct
// tokens longer than three characters, in first-seen order
func Tokenize(query string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(tok) <= minTokenRunes {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Score counts the tokens that occur as substrings of the entry's searchable text
func Score(tokens []string, entry *domain.KnowledgeEntry) int {
	text := entry.SearchableText()
	score := 0
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			score++
		}
	}
	return score
}

// Select picks entries for query from entries given in natural order.
// Matches are ranked by score, ties keep natural order; with no match the
// first few entries are returned.
func Select(entries []*domain.KnowledgeEntry, query string) []*domain.KnowledgeEntry {
	if len(entries) == 0 {
		return nil
	}

	tokens := Tokenize(query)
	type scored struct {
		entry *domain.KnowledgeEntry
		score int
	}
	var matches []scored
	for _, e := range entries {
		if s := Score(tokens, e); s > 0 {
			matches = append(matches, scored{entry: e, score: s})
		}
	}

	if len(matches) == 0 {
		n := min(fallbackCount, len(entries))
		return entries[:n]
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > maxRelevant {
		matches = matches[:maxRelevant]
	}
	selected := make([]*domain.KnowledgeEntry, len(matches))
	for i, m := range matches {
		selected[i] = m.entry
	}
	return selected
}

// Relevant returns the formatted knowledge context for a message, "" when
// the knowledge base is empty or cannot be read
func (uc *KnowledgeUsecase) Relevant(ctx context.Context, query string) string {
	entries, err := uc.knowledgeRepo.List(ctx)
	if err != nil {
		log.Error().Str("component", "knowledge").Err(err).Msg("failed to load knowledge base")
		return ""
	}
	return domain.FormatKnowledge(Select(entries, query))
}

// ========== Knowledge base management ==========

// List returns all entries, most recently updated first
func (uc *KnowledgeUsecase) List(ctx context.Context) ([]*domain.KnowledgeEntry, error) {
	return uc.knowledgeRepo.List(ctx)
}

// Get returns one entry
func (uc *KnowledgeUsecase) Get(ctx context.Context, id int64) (*domain.KnowledgeEntry, error) {
	return uc.knowledgeRepo.Get(ctx, id)
}

// Search does a substring search over title, content and tags
func (uc *KnowledgeUsecase) Search(ctx context.Context, query string) ([]*domain.KnowledgeEntry, error) {
	return uc.knowledgeRepo.Search(ctx, query)
}

// Create adds an entry and returns it with its ID
func (uc *KnowledgeUsecase) Create(ctx context.Context, entry *domain.KnowledgeEntry) (*domain.KnowledgeEntry, error) {
	if err := checkEntry(entry); err != nil {
		return nil, err
	}
	id, err := uc.knowledgeRepo.Create(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("create knowledge entry: %w", err)
	}
	return uc.knowledgeRepo.Get(ctx, id)
}

// Update replaces an entry's fields
func (uc *KnowledgeUsecase) Update(ctx context.Context, entry *domain.KnowledgeEntry) (*domain.KnowledgeEntry, error) {
	if err := checkEntry(entry); err != nil {
		return nil, err
	}
	if err := uc.knowledgeRepo.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("update knowledge entry %d: %w", entry.ID, err)
	}
	return uc.knowledgeRepo.Get(ctx, entry.ID)
}

// Delete removes an entry
func (uc *KnowledgeUsecase) Delete(ctx context.Context, id int64) error {
	return uc.knowledgeRepo.Delete(ctx, id)
}

// Categories returns the distinct categories in use
func (uc *KnowledgeUsecase) Categories(ctx context.Context) ([]string, error) {
	return uc.knowledgeRepo.Categories(ctx)
}

// Stats summarizes the knowledge base
func (uc *KnowledgeUsecase) Stats(ctx context.Context) (*domain.KnowledgeStats, error) {
	entries, err := uc.knowledgeRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := uc.knowledgeRepo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.KnowledgeStats{
		TotalEntries: len(entries),
		Categories:   len(categories),
	}
	if len(entries) > 0 {
		last := entries[0].UpdatedAt
		stats.LastUpdated = &last
	}
	return stats, nil
}

func checkEntry(entry *domain.KnowledgeEntry) error {
	entry.Title = strings.TrimSpace(entry.Title)
	if entry.Title == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(entry.Content) == "" {
		return fmt.Errorf("content is required")
	}
	if strings.TrimSpace(entry.Category) == "" {
		entry.Category = domain.DefaultCategory
	}
	return nil
}
