package repo

import (
	"context"
	"errors"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
)

// ErrAlreadyReplied is returned when a reply is recorded twice for one message
var ErrAlreadyReplied = errors.New("message already replied")

// ErrNotFound is returned for lookups of missing records
var ErrNotFound = errors.New("not found")

// MessageRepo persists inbound messages and their replies
type MessageRepo interface {
	// Create stores an inbound message with status "received" and returns its ID
	Create(ctx context.Context, msg domain.InboundMessage) (int64, error)

	// MarkReplied writes the reply fields and flips status to "replied" in one statement.
	// Records that are already replied are left untouched and ErrAlreadyReplied is returned.
	MarkReplied(ctx context.Context, id int64, reply domain.Reply) error

	Get(ctx context.Context, id int64) (*domain.MessageRecord, error)
	List(ctx context.Context, limit int) ([]*domain.MessageRecord, error)
	ListBySender(ctx context.Context, senderID string, limit int) ([]*domain.MessageRecord, error)
	Stats(ctx context.Context) (*domain.MessageStats, error)
}
