package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
)

func entry(id int64, title, content, category string) *domain.KnowledgeEntry {
	return &domain.KnowledgeEntry{ID: id, Title: title, Content: content, Category: category}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"where", "going", "vacation"}, Tokenize("Where are you going on vacation"))
	assert.Equal(t, []string{"hello"}, Tokenize("hello HELLO hello"))
	assert.Empty(t, Tokenize("hi yo abc"))
	// rune count, not bytes
	assert.Equal(t, []string{"café"}, Tokenize("café été"))
}

func TestSelect(t *testing.T) {
	vacation := entry(1, "Vacation", "Going to Mexico in June", "Personal")
	pets := entry(2, "Pets", "Two cats", "Personal")
	work := entry(3, "Work", "Software engineer", "Career")
	hobby := entry(4, "Hobby", "Guitar", "Personal")

	t.Run("empty base", func(t *testing.T) {
		assert.Empty(t, Select(nil, "anything"))
	})

	t.Run("matching entry only", func(t *testing.T) {
		got := Select([]*domain.KnowledgeEntry{vacation, pets}, "Where are you going on vacation")
		require.Len(t, got, 1)
		assert.Equal(t, vacation, got[0])
	})

	t.Run("no match falls back to first three", func(t *testing.T) {
		got := Select([]*domain.KnowledgeEntry{vacation, pets, work, hobby}, "hi")
		assert.Equal(t, []*domain.KnowledgeEntry{vacation, pets, work}, got)
	})

	t.Run("ranked by score with stable ties", func(t *testing.T) {
		a := entry(10, "Guitar lessons", "weekly", "Music")
		b := entry(11, "Piano", "guitar and piano lessons", "Music")
		c := entry(12, "Drums", "guitar", "Music")
		got := Select([]*domain.KnowledgeEntry{a, c, b}, "guitar lessons piano")
		assert.Equal(t, []*domain.KnowledgeEntry{b, a, c}, got)
	})

	t.Run("at most five", func(t *testing.T) {
		var entries []*domain.KnowledgeEntry
		for i := int64(0); i < 8; i++ {
			entries = append(entries, entry(i, "Coffee", "espresso", "Food"))
		}
		got := Select(entries, "coffee")
		assert.Len(t, got, 5)
		assert.Equal(t, int64(0), got[0].ID)
	})

	t.Run("duplicate tokens count once", func(t *testing.T) {
		a := entry(1, "Mexico", "", "Travel")
		b := entry(2, "Vacation beach", "", "Travel")
		got := Select([]*domain.KnowledgeEntry{a, b}, "mexico mexico mexico vacation beach")
		assert.Equal(t, []*domain.KnowledgeEntry{b, a}, got)
	})
}

func TestKnowledgeUsecase_Relevant(t *testing.T) {
	ctx := context.Background()

	uc := NewKnowledgeUsecase(&mockKnowledgeRepo{entries: []*domain.KnowledgeEntry{
		entry(1, "Vacation", "Going to Mexico in June", "Personal"),
		entry(2, "Pets", "Two cats", "Personal"),
	}})
	assert.Equal(t, "[Personal] Vacation\nGoing to Mexico in June", uc.Relevant(ctx, "vacation plans?"))

	empty := NewKnowledgeUsecase(&mockKnowledgeRepo{})
	assert.Equal(t, "", empty.Relevant(ctx, "vacation"))

	broken := NewKnowledgeUsecase(&mockKnowledgeRepo{err: errors.New("locked")})
	assert.Equal(t, "", broken.Relevant(ctx, "vacation"))
}

func TestKnowledgeUsecase_CreateAndStats(t *testing.T) {
	ctx := context.Background()
	r := &mockKnowledgeRepo{}
	uc := NewKnowledgeUsecase(r)

	_, err := uc.Create(ctx, &domain.KnowledgeEntry{Title: " ", Content: "x"})
	assert.Error(t, err)
	_, err = uc.Create(ctx, &domain.KnowledgeEntry{Title: "x", Content: ""})
	assert.Error(t, err)

	created, err := uc.Create(ctx, &domain.KnowledgeEntry{Title: "Hours", Content: "9-5", UpdatedAt: time.Unix(100, 0)})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCategory, created.Category)

	stats, err := uc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, 1, stats.Categories)
	require.NotNil(t, stats.LastUpdated)
	assert.Equal(t, time.Unix(100, 0), *stats.LastUpdated)
}
