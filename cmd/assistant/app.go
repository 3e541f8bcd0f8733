package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/textrelay/wa-assistant/internal/biz"
	"github.com/textrelay/wa-assistant/internal/conf"
	"github.com/textrelay/wa-assistant/internal/data"
)

const providerClientTimeout = 60 * time.Second

// app holds the wired repositories and usecases shared by all commands
type app struct {
	repos *data.Repositories
	*biz.Usecases
}

func newApp(ctx context.Context, cfg *conf.Config) (*app, error) {
	repos, err := data.NewRepositories(ctx, data.Options{
		DatabasePath:    cfg.Database.Path,
		SettingSeeds:    cfg.Prompts.SeedValues(),
		HTTPClient:      &http.Client{Timeout: providerClientTimeout},
		LarkAppID:       cfg.Lark.AppID,
		LarkAppSecret:   cfg.Lark.AppSecret,
		LarkAlertChatID: cfg.Lark.AlertChatID,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("component", "app").Str("db", cfg.Database.Path).Bool("alerts", repos.Notify != nil).Msg("database ready")

	usecases := biz.NewUsecases(biz.Repos{
		Message:    repos.Message,
		Whitelist:  repos.Whitelist,
		Knowledge:  repos.Knowledge,
		Settings:   repos.Settings,
		Completion: repos.Completion,
		Delivery:   repos.Delivery,
	}, cfg.Prompts.SettingOverrides(), cfg.CredentialEnv())

	return &app{repos: repos, Usecases: usecases}, nil
}

func (a *app) Close() {
	if err := a.repos.Close(); err != nil {
		log.Warn().Str("component", "app").Err(err).Msg("failed to close database")
	}
}
