package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/textrelay/wa-assistant/internal/biz/repo"
	"github.com/textrelay/wa-assistant/internal/biz/usecase"
	"github.com/textrelay/wa-assistant/internal/conf"
	"github.com/textrelay/wa-assistant/internal/observability"
)

// Dispatcher hands an inbound message to the pipeline without waiting for it
type Dispatcher interface {
	Dispatch(ctx context.Context, senderID, text string)
}

// Deps are the collaborators the HTTP surface talks to
type Deps struct {
	Relay     Dispatcher
	Knowledge *usecase.KnowledgeUsecase
	Settings  *usecase.SettingsUsecase
	Messages  repo.MessageRepo
	Whitelist repo.WhitelistRepo
	Metrics   *observability.Metrics
	Gatherer  prometheus.Gatherer
}

// Server serves the webhook, the admin API, health and metrics
type Server struct {
	relay     Dispatcher
	knowledge *usecase.KnowledgeUsecase
	settings  *usecase.SettingsUsecase
	messages  repo.MessageRepo
	whitelist repo.WhitelistRepo
	metrics   *observability.Metrics
	gatherer  prometheus.Gatherer

	cfg      conf.ServerConfig
	adminKey string
	validate *validator.Validate
}

// NewServer creates the HTTP surface
func NewServer(cfg conf.ServerConfig, adminKey string, deps Deps) *Server {
	return &Server{
		relay:     deps.Relay,
		knowledge: deps.Knowledge,
		settings:  deps.Settings,
		messages:  deps.Messages,
		whitelist: deps.Whitelist,
		metrics:   deps.Metrics,
		gatherer:  deps.Gatherer,
		cfg:       cfg,
		adminKey:  adminKey,
		validate:  newValidator(),
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if s.cfg.TrustForwardedFor {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)
	r.Use(tracing)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/webhook", func(r chi.Router) {
		r.Use(newIPRateLimiter(s.cfg.WebhookRatePerMin, time.Minute).middleware)
		r.Post("/whatsapp", s.handleWebhook)
		r.Get("/health", s.handleWebhookHealth)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(newIPRateLimiter(s.cfg.AdminRatePer15Min, 15*time.Minute).middleware)
		r.Use(requireAPIKey(s.adminKey))

		r.Get("/knowledge", s.listKnowledge)
		r.Post("/knowledge", s.createKnowledge)
		r.Get("/knowledge/search", s.searchKnowledge)
		r.Get("/knowledge/stats", s.knowledgeStats)
		r.Get("/knowledge/{id}", s.getKnowledge)
		r.Put("/knowledge/{id}", s.updateKnowledge)
		r.Delete("/knowledge/{id}", s.deleteKnowledge)
		r.Get("/categories", s.listCategories)

		r.Get("/settings", s.getSettings)
		r.Post("/settings", s.updateSettings)

		r.Get("/messages", s.listMessages)
		r.Get("/messages/{sender}", s.listSenderMessages)
		r.Get("/stats", s.messageStats)

		r.Get("/whitelist", s.listWhitelist)
		r.Post("/whitelist", s.addWhitelist)
		r.Get("/whitelist/check/{sender}", s.checkWhitelist)
		r.Put("/whitelist/{sender}", s.updateWhitelist)
		r.Delete("/whitelist/{sender}", s.removeWhitelist)
	})

	return r
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.CORSAllowedOrigins
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"version":   observability.Version,
	})
}
