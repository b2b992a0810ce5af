package config

import (
	"errors"
	"fmt"
	"os"
)

// Sentinel errors for configuration validation.
// Use errors.Is to test which rule failed.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidOllamaHost indicates the Ollama host is empty.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrMissingAppID indicates the chat platform application ID is not set.
	ErrMissingAppID = errors.New("missing platform app ID")

	// ErrMissingAPIToken indicates the chat platform API token is not set.
	ErrMissingAPIToken = errors.New("missing platform API token")

	// ErrMissingBotUserID indicates the bot user identity is not set.
	ErrMissingBotUserID = errors.New("missing bot user ID")

	// ErrInvalidChunkSize indicates the chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidMaxToolRounds indicates the tool round bound is out of range.
	ErrInvalidMaxToolRounds = errors.New("invalid max_tool_rounds")

	// ErrInvalidMaxHistory indicates the history bound is out of range.
	ErrInvalidMaxHistory = errors.New("invalid max_history_messages")

	// ErrMissingFAQPath indicates the FAQ source path is empty.
	ErrMissingFAQPath = errors.New("missing FAQ path")

	// ErrMissingIndexPath indicates the index path is empty.
	ErrMissingIndexPath = errors.New("missing index path")
)

// Bounds for validated numeric settings.
const (
	minChunkSize = 50
	maxChunkSize = 10000

	maxTopK = 20

	maxToolRounds = 25

	maxHistoryMessages = 10000
)

// Validate checks configuration consistency for all run modes.
// Serve-mode-only requirements (platform credentials) live in ValidateServe.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
			return fmt.Errorf("%w: set GEMINI_API_KEY for provider %q", ErrMissingAPIKey, c.Provider)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: set OPENAI_API_KEY for provider %q", ErrMissingAPIKey, c.Provider)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return ErrInvalidOllamaHost
		}
	default:
		return fmt.Errorf("%w: %q (supported: gemini, ollama, openai)", ErrInvalidProvider, c.Provider)
	}

	if c.ModelName == "" {
		return ErrInvalidModelName
	}

	if c.FAQPath == "" {
		return ErrMissingFAQPath
	}
	if c.IndexPath == "" {
		return ErrMissingIndexPath
	}

	if c.ChunkSize < minChunkSize || c.ChunkSize > maxChunkSize {
		return fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidChunkSize, c.ChunkSize, minChunkSize, maxChunkSize)
	}
	if c.TopK < 1 || c.TopK > maxTopK {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidTopK, c.TopK, maxTopK)
	}
	if c.MaxToolRounds < 1 || c.MaxToolRounds > maxToolRounds {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidMaxToolRounds, c.MaxToolRounds, maxToolRounds)
	}
	if c.MaxHistoryMessages < 2 || c.MaxHistoryMessages > maxHistoryMessages {
		return fmt.Errorf("%w: %d (must be 2-%d)", ErrInvalidMaxHistory, c.MaxHistoryMessages, maxHistoryMessages)
	}

	return nil
}

// ValidateServe checks requirements that only apply when running the HTTP
// service: outbound platform credentials and the bot identity.
func (c *Config) ValidateServe() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.AppID == "" {
		return fmt.Errorf("%w: set SENDBIRD_APP_ID", ErrMissingAppID)
	}
	if c.APIToken == "" {
		return fmt.Errorf("%w: set SENDBIRD_API_TOKEN", ErrMissingAPIToken)
	}
	if c.BotUserID == "" {
		return ErrMissingBotUserID
	}
	return nil
}
