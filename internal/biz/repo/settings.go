package repo

import "context"

// SettingsRepo is the raw key/value settings table
type SettingsRepo interface {
	// Get returns found=false when no row exists for key
	Get(ctx context.Context, key string) (value string, found bool, err error)
	GetAll(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	// SetMany writes all pairs in one transaction
	SetMany(ctx context.Context, values map[string]string) error
}
