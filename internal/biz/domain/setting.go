package domain

// Setting keys read by the pipeline, the responder and the delivery gateway
const (
	SettingAutoReplyEnabled = "auto_reply_enabled"
	SettingResponseDelay    = "response_delay"
	SettingActiveHoursStart = "active_hours_start"
	SettingActiveHoursEnd   = "active_hours_end"
	SettingResponseMode     = "response_mode"
	SettingAITemperature    = "ai_temperature"
	SettingSystemPrompt     = "system_prompt"

	SettingMyName          = "my_name"
	SettingMyPersonality   = "my_personality"
	SettingMyWritingStyle  = "my_writing_style"
	SettingMyCommonPhrases = "my_common_phrases"

	SettingGrokAPIKey     = "grok_api_key"
	SettingGrokAPIURL     = "grok_api_url"
	SettingGrokModel      = "grok_model"
	SettingWasenderAPIKey = "wasender_api_key"
	SettingWasenderAPIURL = "wasender_api_url"
)

// DefaultSystemPrompt is the built-in persona prompt seeded into settings
const DefaultSystemPrompt = "You are ME. Write EXACTLY as I would write - in first person, using my voice, my tone, my style. " +
	"Never reveal you are AI. Respond naturally as if I am personally typing these messages. " +
	"Keep responses conversational and personal. Use my speaking patterns. Be warm but authentic. " +
	"Vary response length naturally - sometimes short, sometimes longer. Use casual language when appropriate. " +
	"Sound human, spontaneous, and genuine. Make it feel like real text messages from me, not from a bot."

// DefaultTemperature applies when ai_temperature cannot be parsed
const DefaultTemperature = 0.8

// Setting is one key/value configuration row
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SettingDef describes a known setting
type SettingDef struct {
	Key     string
	Default string
	EnvKey  string // optional environment fallback
	Secret  bool   // credential, not seeded into the store
}

// DefaultSettingDefs returns all known settings with their defaults
func DefaultSettingDefs() []SettingDef {
	return []SettingDef{
		{Key: SettingAutoReplyEnabled, Default: "true"},
		{Key: SettingResponseDelay, Default: "4"},
		{Key: SettingActiveHoursStart, Default: "00:00"},
		{Key: SettingActiveHoursEnd, Default: "23:59"},
		{Key: SettingResponseMode, Default: "always"},
		{Key: SettingAITemperature, Default: "0.8"},
		{Key: SettingSystemPrompt, Default: DefaultSystemPrompt},
		{Key: SettingMyName, Default: ""},
		{Key: SettingMyPersonality, Default: "Friendly, casual, warm"},
		{Key: SettingMyCommonPhrases, Default: ""},
		{Key: SettingMyWritingStyle, Default: "Conversational, personal, natural"},
		{Key: SettingGrokAPIKey, EnvKey: "GROK_API_KEY", Secret: true},
		{Key: SettingGrokAPIURL, Default: "https://api.x.ai/v1", EnvKey: "GROK_API_URL", Secret: true},
		{Key: SettingGrokModel, Default: "grok-3", EnvKey: "GROK_MODEL", Secret: true},
		{Key: SettingWasenderAPIKey, EnvKey: "WASENDER_API_KEY", Secret: true},
		{Key: SettingWasenderAPIURL, Default: "https://wasenderapi.com/api", EnvKey: "WASENDER_API_URL", Secret: true},
	}
}

// Persona holds the operator-supplied fields injected into the AI prompt
type Persona struct {
	Name          string
	Personality   string
	WritingStyle  string
	CommonPhrases string
}
