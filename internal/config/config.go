// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (./finch.yaml or ~/.finch/config.yaml)
//  3. Default values
//
// Security: sensitive data (the platform API token) is never logged; see
// MarshalJSON. Validation lives in validation.go with sentinel errors for
// errors.Is checks.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOllama   = "ollama"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// Defaults for knowledge-store and agent bounds.
const (
	// DefaultChunkSize is the target chunk length in characters used when
	// splitting the FAQ document for indexing.
	DefaultChunkSize = 500

	// DefaultTopK is the number of passages retrieved per query.
	DefaultTopK = 2

	// DefaultMaxToolRounds bounds the agentic tool-calling loop.
	DefaultMaxToolRounds = 5

	// DefaultMaxHistoryMessages bounds retained conversation turns per session.
	DefaultMaxHistoryMessages = 100
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (API keys, tokens), update MarshalJSON.
type Config struct {
	// Server configuration
	Addr        string   `mapstructure:"addr" json:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`

	// AI provider and model configuration
	Provider      string `mapstructure:"provider" json:"provider"`       // "gemini" (default), "ollama", "openai"
	ModelName     string `mapstructure:"model_name" json:"model_name"`   // e.g. "gemini-2.5-flash", "llama3.3", "gpt-4o"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	OllamaHost    string `mapstructure:"ollama_host" json:"ollama_host"` // only used when provider is "ollama"

	// Chat platform configuration (Sendbird-style)
	AppID    string `mapstructure:"app_id" json:"app_id"`
	APIToken string `mapstructure:"api_token" json:"api_token"` // SENSITIVE: masked in MarshalJSON
	BotUserID string `mapstructure:"bot_user_id" json:"bot_user_id"`
	// PlatformBaseURL overrides the derived https://api-{app_id}.sendbird.com
	// endpoint. Mainly for tests and self-hosted gateways.
	PlatformBaseURL string `mapstructure:"platform_base_url" json:"platform_base_url"`

	// Knowledge store configuration
	FAQPath   string `mapstructure:"faq_path" json:"faq_path"`
	IndexPath string `mapstructure:"index_path" json:"index_path"`
	ChunkSize int    `mapstructure:"chunk_size" json:"chunk_size"`
	TopK      int    `mapstructure:"top_k" json:"top_k"`

	// Agent bounds
	MaxToolRounds      int `mapstructure:"max_tool_rounds" json:"max_tool_rounds"`
	MaxHistoryMessages int `mapstructure:"max_history_messages" json:"max_history_messages"`

	// Observability configuration (see observability.go)
	OTLP OTLPConfig `mapstructure:"otlp" json:"otlp"`

	// Logging
	LogJSON bool `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".finch")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is not an error, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Validate immediately (fail-fast).
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Server defaults
	viper.SetDefault("addr", "127.0.0.1:8000")
	// CORS defaults (operator dashboard dev server)
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})

	// AI defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("embedder_model", "gemini-embedding-001")
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Platform defaults
	viper.SetDefault("bot_user_id", "ai_agent_bot")

	// Knowledge defaults
	viper.SetDefault("faq_path", "data/faq.txt")
	viper.SetDefault("index_path", "data/index")
	viper.SetDefault("chunk_size", DefaultChunkSize)
	viper.SetDefault("top_k", DefaultTopK)

	// Agent defaults
	viper.SetDefault("max_tool_rounds", DefaultMaxToolRounds)
	viper.SetDefault("max_history_messages", DefaultMaxHistoryMessages)

	// OTLP defaults (disabled unless endpoint configured)
	viper.SetDefault("otlp.endpoint", "")
	viper.SetDefault("otlp.service_name", "finch")
	viper.SetDefault("otlp.environment", "dev")

	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly.
// Platform credentials come only from the environment in production.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Chat platform credentials
	mustBind("app_id", "SENDBIRD_APP_ID")
	mustBind("api_token", "SENDBIRD_API_TOKEN")
	mustBind("bot_user_id", "FINCH_BOT_USER_ID")
	mustBind("platform_base_url", "FINCH_PLATFORM_BASE_URL")

	// Server overrides
	mustBind("addr", "FINCH_ADDR")
	mustBind("cors_origins", "FINCH_CORS_ORIGINS")

	// AI provider and model overrides
	mustBind("provider", "FINCH_PROVIDER")
	mustBind("model_name", "FINCH_MODEL_NAME")
	mustBind("embedder_model", "FINCH_EMBEDDER_MODEL")
	mustBind("ollama_host", "FINCH_OLLAMA_HOST")

	// Knowledge overrides
	mustBind("faq_path", "FINCH_FAQ_PATH")
	mustBind("index_path", "FINCH_INDEX_PATH")

	// OTLP
	mustBind("otlp.endpoint", "FINCH_OTLP_ENDPOINT")

	// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper.
	// NOTE: OPENAI_API_KEY is read directly by the Genkit OpenAI plugin.
	// Validation checks their presence based on the selected provider.
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets keep the
// first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.APIToken = maskSecret(a.APIToken)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3", "openai/gpt-4o".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}

// BaseURL returns the platform API base URL, deriving the regional endpoint
// from the application ID unless explicitly overridden.
func (c *Config) BaseURL() string {
	if c.PlatformBaseURL != "" {
		return strings.TrimRight(c.PlatformBaseURL, "/")
	}
	return "https://api-" + c.AppID + ".sendbird.com"
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
