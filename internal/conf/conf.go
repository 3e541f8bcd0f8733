package conf

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config represents application configuration
type Config struct {
	// HTTP server
	Server ServerConfig

	// SQLite database
	Database DatabaseConfig

	// Provider credentials; stored settings take precedence over these
	Grok     GrokConfig
	Wasender WasenderConfig

	// Operator alerts (optional)
	Lark LarkConfig

	// Admin API protection (optional)
	Admin AdminConfig

	// Tracing (optional)
	Telemetry TelemetryConfig

	Log LogConfig

	// Prompts and setting defaults (loaded from YAML)
	Prompts *PromptsConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port               int
	WebhookRatePerMin  int           // per client IP
	AdminRatePer15Min  int           // per client IP
	ShutdownTimeout    time.Duration // how long to wait for in-flight replies
	CORSAllowedOrigins []string
	TrustForwardedFor  bool
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Path string
}

// GrokConfig contains the AI provider environment fallback
type GrokConfig struct {
	APIKey string
	APIURL string
	Model  string
}

// WasenderConfig contains the messaging provider environment fallback
type WasenderConfig struct {
	APIKey string
	APIURL string
}

// LarkConfig contains Lark alert configuration
type LarkConfig struct {
	AppID       string
	AppSecret   string
	AlertChatID string
}

// Enabled reports whether alerts are fully configured
func (c LarkConfig) Enabled() bool {
	return c.AppID != "" && c.AppSecret != "" && c.AlertChatID != ""
}

// AdminConfig contains admin API configuration
type AdminConfig struct {
	APIKey string // empty disables bearer auth
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
	SampleRatio  float64
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string
	Format string // console or json
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Server port
	port := 3000
	if val := os.Getenv("PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			port = parsed
		}
	}

	// Rate limits
	webhookRate := 100
	if val := os.Getenv("WEBHOOK_RATE_LIMIT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			webhookRate = parsed
		}
	}
	adminRate := 100
	if val := os.Getenv("ADMIN_RATE_LIMIT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			adminRate = parsed
		}
	}

	// Graceful shutdown budget; covers the response delay plus provider timeouts
	shutdownTimeout := 60 * time.Second
	if val := os.Getenv("SHUTDOWN_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			shutdownTimeout = parsed
		}
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/assistant.db"
	}

	sampleRatio := 1.0
	if val := os.Getenv("OTEL_SAMPLE_RATIO"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			sampleRatio = parsed
		}
	}
	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = "wa-assistant"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "console"
	}

	// Load prompts from YAML
	promptsConfig, err := LoadPromptsConfig(os.Getenv("PROMPTS_CONFIG_PATH"))
	if err != nil {
		log.Warn().Str("component", "config").Err(err).Msg("using built-in prompts")
	}

	return &Config{
		Server: ServerConfig{
			Port:               port,
			WebhookRatePerMin:  webhookRate,
			AdminRatePer15Min:  adminRate,
			ShutdownTimeout:    shutdownTimeout,
			CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
			TrustForwardedFor:  os.Getenv("TRUST_PROXY") == "true",
		},
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Grok: GrokConfig{
			APIKey: os.Getenv("GROK_API_KEY"),
			APIURL: os.Getenv("GROK_API_URL"),
			Model:  os.Getenv("GROK_MODEL"),
		},
		Wasender: WasenderConfig{
			APIKey: os.Getenv("WASENDER_API_KEY"),
			APIURL: os.Getenv("WASENDER_API_URL"),
		},
		Lark: LarkConfig{
			AppID:       os.Getenv("LARK_APP_ID"),
			AppSecret:   os.Getenv("LARK_APP_SECRET"),
			AlertChatID: os.Getenv("LARK_ALERT_CHAT_ID"),
		},
		Admin: AdminConfig{
			APIKey: os.Getenv("ADMIN_API_KEY"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      os.Getenv("OTEL_ENABLED") == "true",
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  serviceName,
			SampleRatio:  sampleRatio,
		},
		Log: LogConfig{
			Level:  logLevel,
			Format: logFormat,
		},
		Prompts: promptsConfig,
	}
}

// CredentialEnv returns the lookup the settings store uses for its
// environment fallback, backed by the loaded configuration
func (c *Config) CredentialEnv() func(string) string {
	values := map[string]string{
		"GROK_API_KEY":     c.Grok.APIKey,
		"GROK_API_URL":     c.Grok.APIURL,
		"GROK_MODEL":       c.Grok.Model,
		"WASENDER_API_KEY": c.Wasender.APIKey,
		"WASENDER_API_URL": c.Wasender.APIURL,
	}
	return func(key string) string { return values[key] }
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"}
	}
	if c.Server.WebhookRatePerMin <= 0 {
		return &ConfigError{Field: "WEBHOOK_RATE_LIMIT", Message: "must be positive"}
	}
	if c.Server.AdminRatePer15Min <= 0 {
		return &ConfigError{Field: "ADMIN_RATE_LIMIT", Message: "must be positive"}
	}
	if c.Database.Path == "" {
		return &ConfigError{Field: "DATABASE_PATH", Message: "required"}
	}
	lark := c.Lark
	if (lark.AppID != "" || lark.AppSecret != "" || lark.AlertChatID != "") && !lark.Enabled() {
		return &ConfigError{Field: "LARK_APP_ID/LARK_APP_SECRET/LARK_ALERT_CHAT_ID", Message: "all three are required for alerts"}
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return &ConfigError{Field: "OTEL_EXPORTER_OTLP_ENDPOINT", Message: "required when OTEL_ENABLED=true"}
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return &ConfigError{Field: "OTEL_SAMPLE_RATIO", Message: "must be between 0 and 1"}
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return &ConfigError{Field: "LOG_FORMAT", Message: "must be console or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
