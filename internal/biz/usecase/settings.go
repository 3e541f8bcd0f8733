package usecase

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
	"github.com/textrelay/wa-assistant/internal/biz/repo"
)

// SettingsUsecase resolves settings: stored row, then environment, then default
type SettingsUsecase struct {
	repo   repo.SettingsRepo
	defs   map[string]domain.SettingDef
	order  []string
	getenv func(string) string
}

// NewSettingsUsecase creates a settings usecase. overrides replaces the
// built-in default of any known key (loaded from the prompts file).
func NewSettingsUsecase(settingsRepo repo.SettingsRepo, overrides map[string]string) *SettingsUsecase {
	uc := &SettingsUsecase{
		repo:   settingsRepo,
		defs:   make(map[string]domain.SettingDef),
		getenv: os.Getenv,
	}
	for _, def := range domain.DefaultSettingDefs() {
		if v, ok := overrides[def.Key]; ok {
			def.Default = v
		}
		uc.defs[def.Key] = def
		uc.order = append(uc.order, def.Key)
	}
	return uc
}

// WithEnv replaces the environment lookup
func (uc *SettingsUsecase) WithEnv(getenv func(string) string) *SettingsUsecase {
	uc.getenv = getenv
	return uc
}

// Defs returns the known setting definitions in declaration order
func (uc *SettingsUsecase) Defs() []domain.SettingDef {
	defs := make([]domain.SettingDef, 0, len(uc.order))
	for _, key := range uc.order {
		defs = append(defs, uc.defs[key])
	}
	return defs
}

// Get returns the effective value of key. It never fails: store errors are
// logged and resolution continues with the environment and the default.
func (uc *SettingsUsecase) Get(ctx context.Context, key string) string {
	value, found, err := uc.repo.Get(ctx, key)
	if err != nil {
		log.Warn().Str("component", "settings").Str("key", key).Err(err).Msg("settings lookup failed, using fallback")
		found = false
	}
	def, known := uc.defs[key]

	if found && (value != "" || def.EnvKey == "") {
		return value
	}
	if known && def.EnvKey != "" {
		if v := uc.getenv(def.EnvKey); v != "" {
			return v
		}
	}
	return def.Default
}

// GetAll returns defaults overlaid with stored rows. Environment-only
// credentials are not included.
func (uc *SettingsUsecase) GetAll(ctx context.Context) map[string]string {
	all := make(map[string]string, len(uc.defs))
	for key, def := range uc.defs {
		if def.Secret && def.Default == "" {
			continue
		}
		all[key] = def.Default
	}

	stored, err := uc.repo.GetAll(ctx)
	if err != nil {
		log.Warn().Str("component", "settings").Err(err).Msg("settings listing failed, returning defaults")
		return all
	}
	for k, v := range stored {
		all[k] = v
	}
	return all
}

// Set upserts one setting
func (uc *SettingsUsecase) Set(ctx context.Context, key, value string) error {
	return uc.repo.Set(ctx, key, value)
}

// SetMany upserts several settings atomically
func (uc *SettingsUsecase) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	return uc.repo.SetMany(ctx, values)
}

// ========== Typed helpers ==========

// Bool reports whether the setting is exactly "true"
func (uc *SettingsUsecase) Bool(ctx context.Context, key string) bool {
	return uc.Get(ctx, key) == "true"
}

// Int parses the setting as an integer, 0 when unparseable
func (uc *SettingsUsecase) Int(ctx context.Context, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(uc.Get(ctx, key)))
	if err != nil {
		return 0
	}
	return n
}

// Float parses the setting as a float, fallback when unparseable
func (uc *SettingsUsecase) Float(ctx context.Context, key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(uc.Get(ctx, key)), 64)
	if err != nil {
		return fallback
	}
	return f
}

// Persona collects the persona fields injected into the AI prompt
func (uc *SettingsUsecase) Persona(ctx context.Context) domain.Persona {
	return domain.Persona{
		Name:          uc.Get(ctx, domain.SettingMyName),
		Personality:   uc.Get(ctx, domain.SettingMyPersonality),
		WritingStyle:  uc.Get(ctx, domain.SettingMyWritingStyle),
		CommonPhrases: uc.Get(ctx, domain.SettingMyCommonPhrases),
	}
}
