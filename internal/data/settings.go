package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

// settingsRepo implements the key/value settings table
type settingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo creates a new settings repository
func NewSettingsRepo(db *sql.DB) repo.SettingsRepo {
	return &settingsRepo{db: db}
}

const upsertSetting = `
	INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

// Get returns one stored value
func (r *settingsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query setting %s: %w", key, err)
	}
	return value, true, nil
}

// GetAll returns all stored rows
func (r *settingsRepo) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Set upserts one value
func (r *settingsRepo) Set(ctx context.Context, key, value string) error {
	if _, err := r.db.ExecContext(ctx, upsertSetting, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// SetMany upserts all values in one transaction
func (r *settingsRepo) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settings update: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for k, v := range values {
		if _, err := tx.ExecContext(ctx, upsertSetting, k, v, now); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings update: %w", err)
	}
	return nil
}
