package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"medical-triage/internal/integrations/elevenlabs"
	"medical-triage/internal/repository"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config is the process configuration. It is read from the environment only
// by the binaries under cmd/.
type Config struct {
	ParamPrefix string

	VoiceID      string
	VoiceModelID string

	Provider        string
	GenerationModel string
	Temperature     float64

	RulesTable string
	Ruleset    string

	HTTPAddr    string
	MaxUserText int
	MaxHistory  int
}

// LoadConfig reads Config from the process environment.
func LoadConfig() (Config, error) {
	return loadConfig(os.Getenv)
}

func loadConfig(getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		ParamPrefix:     strings.TrimRight(env("PARAM_PREFIX", ""), "/"),
		VoiceID:         env("ELEVENLABS_VOICE_ID", ""),
		VoiceModelID:    env("ELEVENLABS_MODEL_ID", elevenlabs.DefaultModelID),
		Provider:        strings.ToLower(env("GENERATION_PROVIDER", ProviderGemini)),
		GenerationModel: env("GENERATION_MODEL", ""),
		RulesTable:      env("RULES_TABLE", ""),
		Ruleset:         env("RULESET", repository.DefaultRuleset),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
	}
	if cfg.ParamPrefix == "" {
		return Config{}, fmt.Errorf("app: required environment variable %s is not set", "PARAM_PREFIX")
	}
	if cfg.VoiceID == "" {
		return Config{}, fmt.Errorf("app: required environment variable %s is not set", "ELEVENLABS_VOICE_ID")
	}
	if cfg.Provider != ProviderGemini && cfg.Provider != ProviderOpenAI {
		return Config{}, fmt.Errorf("app: unsupported GENERATION_PROVIDER %q", cfg.Provider)
	}

	var err error
	if cfg.Temperature, err = envFloat(getenv, "GENERATION_TEMPERATURE", 0.7); err != nil {
		return Config{}, err
	}
	if cfg.MaxUserText, err = envInt(getenv, "MAX_USER_TEXT_LENGTH", 4000); err != nil {
		return Config{}, err
	}
	if cfg.MaxHistory, err = envInt(getenv, "MAX_HISTORY_TURNS", 100); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envInt(getenv func(string) string, key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("app: %s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func envFloat(getenv func(string) string, key string, def float64) (float64, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 2 {
		return 0, fmt.Errorf("app: %s must be a number between 0 and 2, got %q", key, v)
	}
	return f, nil
}
