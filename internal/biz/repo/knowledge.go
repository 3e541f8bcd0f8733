package repo

import (
	"context"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
)

// KnowledgeRepo stores knowledge entries
type KnowledgeRepo interface {
	// List returns every entry, most recently updated first
	List(ctx context.Context) ([]*domain.KnowledgeEntry, error)
	Get(ctx context.Context, id int64) (*domain.KnowledgeEntry, error)
	// Search does a plain substring match over title, content and tags
	Search(ctx context.Context, query string) ([]*domain.KnowledgeEntry, error)
	Create(ctx context.Context, entry *domain.KnowledgeEntry) (int64, error)
	Update(ctx context.Context, entry *domain.KnowledgeEntry) error
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]string, error)
}
