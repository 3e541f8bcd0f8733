package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/textrelay/wa-assistant/internal/biz/domain"
)

// PromptsConfig contains the persona prompt and setting defaults loaded from YAML
type PromptsConfig struct {
	Persona PersonaPrompts `yaml:"persona"`

	// Defaults replaces built-in setting defaults, keyed by setting name
	Defaults map[string]string `yaml:"defaults"`
}

// PersonaPrompts contains the default persona fields
type PersonaPrompts struct {
	SystemPrompt  string `yaml:"system_prompt"`
	Name          string `yaml:"name"`
	Personality   string `yaml:"personality"`
	WritingStyle  string `yaml:"writing_style"`
	CommonPhrases string `yaml:"common_phrases"`
}

// LoadPromptsConfig loads prompts configuration from YAML file
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"/etc/wa-assistant/prompts.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		if b, err := os.ReadFile(p); err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		log.Info().Str("component", "config").Msg("no prompts.yaml found, using defaults")
		return DefaultPromptsConfig(), nil
	}

	log.Info().Str("component", "config").Str("path", loadedPath).Msg("loading prompts")

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return DefaultPromptsConfig(), fmt.Errorf("failed to parse prompts.yaml: %w", err)
	}

	config.fillDefaults()
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	if c.Persona.SystemPrompt == "" {
		c.Persona.SystemPrompt = domain.DefaultSystemPrompt
	}
	if c.Defaults == nil {
		c.Defaults = make(map[string]string)
	}
}

// SettingOverrides merges the persona fields into the defaults map.
// Credentials are never taken from the file.
func (c *PromptsConfig) SettingOverrides() map[string]string {
	out := make(map[string]string, len(c.Defaults)+5)
	secret := make(map[string]bool)
	for _, def := range domain.DefaultSettingDefs() {
		if def.Secret && def.Default == "" {
			secret[def.Key] = true
		}
	}
	for k, v := range c.Defaults {
		if !secret[k] {
			out[k] = v
		}
	}

	persona := map[string]string{
		domain.SettingSystemPrompt:    c.Persona.SystemPrompt,
		domain.SettingMyName:          c.Persona.Name,
		domain.SettingMyPersonality:   c.Persona.Personality,
		domain.SettingMyWritingStyle:  c.Persona.WritingStyle,
		domain.SettingMyCommonPhrases: c.Persona.CommonPhrases,
	}
	for k, v := range persona {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// SeedValues returns the defaults written into a fresh settings table:
// every non-credential setting with overrides applied
func (c *PromptsConfig) SeedValues() map[string]string {
	overrides := c.SettingOverrides()
	seeds := make(map[string]string)
	for _, def := range domain.DefaultSettingDefs() {
		if def.Secret {
			continue
		}
		if v, ok := overrides[def.Key]; ok {
			seeds[def.Key] = v
		} else {
			seeds[def.Key] = def.Default
		}
	}
	return seeds
}

// DefaultPromptsConfig returns the default prompts configuration
func DefaultPromptsConfig() *PromptsConfig {
	return &PromptsConfig{
		Persona: PersonaPrompts{
			SystemPrompt: domain.DefaultSystemPrompt,
		},
		Defaults: map[string]string{},
	}
}
