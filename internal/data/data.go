package data

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

// Repositories contains all repositories
type Repositories struct {
	DB         *sql.DB
	Message    repo.MessageRepo
	Whitelist  repo.WhitelistRepo
	Knowledge  repo.KnowledgeRepo
	Settings   repo.SettingsRepo
	Completion repo.CompletionRepo
	Delivery   repo.DeliveryRepo
	Notify     repo.NotifyRepo // nil when alerts are not configured
}

// Options configures NewRepositories
type Options struct {
	DatabasePath string
	// SettingSeeds are inserted once, existing rows are kept
	SettingSeeds map[string]string

	HTTPClient *http.Client

	LarkAppID       string
	LarkAppSecret   string
	LarkAlertChatID string
}

// NewRepositories opens the database and creates all repositories
func NewRepositories(ctx context.Context, opts Options) (*Repositories, error) {
	db, err := OpenDB(ctx, opts.DatabasePath, opts.SettingSeeds)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		DB:         db,
		Message:    NewMessageRepo(db),
		Whitelist:  NewWhitelistRepo(db),
		Knowledge:  NewKnowledgeRepo(db),
		Settings:   NewSettingsRepo(db),
		Completion: NewGrokRepo(opts.HTTPClient),
		Delivery:   NewWasenderRepo(opts.HTTPClient),
		Notify:     NewLarkNotifier(opts.LarkAppID, opts.LarkAppSecret, opts.LarkAlertChatID),
	}, nil
}

// Close releases the database
func (r *Repositories) Close() error {
	return r.DB.Close()
}
