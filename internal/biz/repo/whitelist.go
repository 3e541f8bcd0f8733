package repo

import (
	"context"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
)

// WhitelistRepo is the authorization allow-list.
// The pipeline only calls IsWhitelisted; the rest serves the admin surface.
type WhitelistRepo interface {
	IsWhitelisted(ctx context.Context, senderID string) (bool, error)

	// Add returns created=false when the sender is already present
	Add(ctx context.Context, entry *domain.WhitelistEntry) (created bool, err error)
	Update(ctx context.Context, senderID, name, notes string) error
	Remove(ctx context.Context, senderID string) error
	List(ctx context.Context) ([]*domain.WhitelistEntry, error)
}
