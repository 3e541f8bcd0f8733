package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

// whitelistRepo implements the sender allow-list
type whitelistRepo struct {
	db *sql.DB
}

// NewWhitelistRepo creates a new whitelist repository
func NewWhitelistRepo(db *sql.DB) repo.WhitelistRepo {
	return &whitelistRepo{db: db}
}

// IsWhitelisted checks for an exact sender match
func (r *whitelistRepo) IsWhitelisted(ctx context.Context, senderID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM whitelist WHERE phone_number = ?`, senderID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check whitelist: %w", err)
	}
	return n > 0, nil
}

// Add inserts a sender, leaving an existing entry untouched
func (r *whitelistRepo) Add(ctx context.Context, entry *domain.WhitelistEntry) (bool, error) {
	addedAt := entry.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO whitelist (phone_number, name, notes, added_at)
		VALUES (?, ?, ?, ?)
	`, entry.SenderID, entry.Name, entry.Notes, addedAt.Unix())
	if err != nil {
		return false, fmt.Errorf("failed to add to whitelist: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to add to whitelist: %w", err)
	}
	return n == 1, nil
}

// Update changes name and notes of a sender
func (r *whitelistRepo) Update(ctx context.Context, senderID, name, notes string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE whitelist SET name = ?, notes = ? WHERE phone_number = ?
	`, name, notes, senderID)
	if err != nil {
		return fmt.Errorf("failed to update whitelist: %w", err)
	}
	return expectOne(res, "whitelist entry "+senderID)
}

// Remove deletes a sender
func (r *whitelistRepo) Remove(ctx context.Context, senderID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM whitelist WHERE phone_number = ?`, senderID)
	if err != nil {
		return fmt.Errorf("failed to remove from whitelist: %w", err)
	}
	return expectOne(res, "whitelist entry "+senderID)
}

// List returns all entries, newest first
func (r *whitelistRepo) List(ctx context.Context) ([]*domain.WhitelistEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, phone_number, name, notes, added_at
		FROM whitelist
		ORDER BY added_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query whitelist: %w", err)
	}
	defer rows.Close()

	var out []*domain.WhitelistEntry
	for rows.Next() {
		var e domain.WhitelistEntry
		var addedAt int64
		if err := rows.Scan(&e.ID, &e.SenderID, &e.Name, &e.Notes, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan whitelist entry: %w", err)
		}
		e.AddedAt = time.Unix(addedAt, 0)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, repo.ErrNotFound)
	}
	return nil
}
