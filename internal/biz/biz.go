package biz

import (
	"github.com/textrelay/wa-assistant/internal/biz/repo"
	"github.com/textrelay/wa-assistant/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Settings  *usecase.SettingsUsecase
	Knowledge *usecase.KnowledgeUsecase
	Responder *usecase.ResponderUsecase
	Delivery  *usecase.DeliveryUsecase
	Pipeline  *usecase.PipelineUsecase
}

// Repos are the repositories the usecases are built on
type Repos struct {
	Message    repo.MessageRepo
	Whitelist  repo.WhitelistRepo
	Knowledge  repo.KnowledgeRepo
	Settings   repo.SettingsRepo
	Completion repo.CompletionRepo
	Delivery   repo.DeliveryRepo
}

// NewUsecases wires the usecases. settingDefaults overrides built-in setting
// defaults and getenv backs the credential fallback.
func NewUsecases(r Repos, settingDefaults map[string]string, getenv func(string) string) *Usecases {
	settings := usecase.NewSettingsUsecase(r.Settings, settingDefaults).WithEnv(getenv)
	knowledge := usecase.NewKnowledgeUsecase(r.Knowledge)
	responder := usecase.NewResponderUsecase(r.Completion, settings)
	delivery := usecase.NewDeliveryUsecase(r.Delivery, settings)

	return &Usecases{
		Settings:  settings,
		Knowledge: knowledge,
		Responder: responder,
		Delivery:  delivery,
		Pipeline:  usecase.NewPipelineUsecase(r.Message, r.Whitelist, settings, knowledge, responder, delivery),
	}
}
