package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when the selected provider has no credentials.
var ErrMissingAPIKey = errors.New("missing API key")

// Text and image providers.
const (
	ProviderGemini      = "gemini"
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
	ProviderOllama      = "ollama"
	ProviderPlaceholder = "placeholder"
)

// Feedback stores.
const (
	StoreCSV    = "csv"
	StoreSQLite = "sqlite"
)

var defaultTextModels = map[string]string{
	ProviderGemini:    "gemini-2.5-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-sonnet-4-20250514",
	ProviderOllama:    "llama3.1",
}

// Config holds all application configuration.
type Config struct {
	// Providers
	TextProvider        string
	ImageProvider       string
	PlaceholderFallback bool

	// Credentials and endpoints
	GeminiAPIKey    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	OllamaHost      string

	// Models
	TextModel  string
	ImageModel string

	// Generation defaults
	TextTemperature     float64
	ImageTemperature    float64
	FallbackTemperature float64
	RequestTimeout      time.Duration
	SystemPromptFile    string

	// Feedback storage
	FeedbackStore   string
	FeedbackCSVPath string
	DatabasePath    string
	ImageDir        string

	// Web UI
	ListenAddr       string
	SessionTTL       time.Duration
	GenerateInterval time.Duration
	GenerateBurst    int

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		TextProvider:     strings.ToLower(getEnv("TEXT_PROVIDER", ProviderGemini)),
		ImageProvider:    strings.ToLower(getEnv("IMAGE_PROVIDER", ProviderGemini)),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		OllamaHost:       normalizeOllamaHost(getEnv("OLLAMA_HOST", "http://localhost:11434")),
		ImageModel:       getEnv("IMAGE_MODEL", "gemini-2.5-flash-image"),
		SystemPromptFile: getEnv("SYSTEM_PROMPT_FILE", ""),
		FeedbackStore:    strings.ToLower(getEnv("FEEDBACK_STORE", StoreCSV)),
		FeedbackCSVPath:  getEnv("FEEDBACK_CSV_PATH", "feedback.csv"),
		DatabasePath:     getEnv("DATABASE_PATH", "data/feedback.db"),
		ImageDir:         getEnv("IMAGE_DIR", "generated_images"),
		ListenAddr:       getEnv("LISTEN_ADDR", ":8501"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
	cfg.TextModel = getEnv("TEXT_MODEL", defaultTextModels[cfg.TextProvider])

	var err error

	// Parse booleans
	cfg.PlaceholderFallback, err = strconv.ParseBool(getEnv("PLACEHOLDER_FALLBACK", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid PLACEHOLDER_FALLBACK: %w", err)
	}

	// Parse temperatures
	temps := []struct {
		key string
		def string
		dst *float64
	}{
		{"TEXT_TEMPERATURE", "0.6", &cfg.TextTemperature},
		{"IMAGE_TEMPERATURE", "0.4", &cfg.ImageTemperature},
		{"FALLBACK_TEMPERATURE", "0.5", &cfg.FallbackTemperature},
	}
	for _, tt := range temps {
		*tt.dst, err = parseTemperature(getEnv(tt.key, tt.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", tt.key, err)
		}
	}

	// Parse durations
	cfg.RequestTimeout, err = time.ParseDuration(getEnv("REQUEST_TIMEOUT", "120s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
	}

	cfg.SessionTTL, err = time.ParseDuration(getEnv("SESSION_TTL", "2h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	cfg.GenerateInterval, err = time.ParseDuration(getEnv("GENERATE_INTERVAL", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid GENERATE_INTERVAL: %w", err)
	}

	// Parse integers
	cfg.GenerateBurst, err = strconv.Atoi(getEnv("GENERATE_BURST", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid GENERATE_BURST: %w", err)
	}

	return cfg, nil
}

// LoadSystemPrompt returns the contents of SYSTEM_PROMPT_FILE, or "" when unset.
func (c *Config) LoadSystemPrompt() (string, error) {
	if c.SystemPromptFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.SystemPromptFile)
	if err != nil {
		return "", fmt.Errorf("read SYSTEM_PROMPT_FILE: %w", err)
	}
	return string(data), nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// ValidateForGeneration checks the providers and their credentials.
func (c *Config) ValidateForGeneration() error {
	if err := c.Validate(); err != nil {
		return err
	}

	switch c.TextProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required when TEXT_PROVIDER is gemini", ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required when TEXT_PROVIDER is openai", ErrMissingAPIKey)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("%w: ANTHROPIC_API_KEY is required when TEXT_PROVIDER is anthropic", ErrMissingAPIKey)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("OLLAMA_HOST is required when TEXT_PROVIDER is ollama")
		}
	default:
		return fmt.Errorf("invalid TEXT_PROVIDER: %s (must be gemini, openai, anthropic or ollama)", c.TextProvider)
	}

	switch c.ImageProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required when IMAGE_PROVIDER is gemini", ErrMissingAPIKey)
		}
	case ProviderPlaceholder:
	default:
		return fmt.Errorf("invalid IMAGE_PROVIDER: %s (must be gemini or placeholder)", c.ImageProvider)
	}
	return nil
}

// ValidateForStorage checks configuration needed to record feedback.
func (c *Config) ValidateForStorage() error {
	if c.ImageDir == "" {
		return fmt.Errorf("IMAGE_DIR is required")
	}
	switch c.FeedbackStore {
	case StoreCSV:
		if c.FeedbackCSVPath == "" {
			return fmt.Errorf("FEEDBACK_CSV_PATH is required when FEEDBACK_STORE is csv")
		}
	case StoreSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required when FEEDBACK_STORE is sqlite")
		}
	default:
		return fmt.Errorf("invalid FEEDBACK_STORE: %s (must be csv or sqlite)", c.FeedbackStore)
	}
	return nil
}

// ValidateForServe checks configuration needed by the web UI. Missing
// credentials are not fatal here; the UI reports them on submit.
func (c *Config) ValidateForServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.ValidateForStorage(); err != nil {
		return err
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.GenerateInterval < 0 || c.GenerateBurst < 1 {
		return fmt.Errorf("GENERATE_INTERVAL must be >= 0 and GENERATE_BURST >= 1")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseTemperature(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("%v outside [0, 1]", v)
	}
	return v, nil
}

// normalizeOllamaHost ensures the Ollama host has a proper URL scheme.
// This handles cases where OLLAMA_HOST is set to a bind address like "0.0.0.0"
// (used by Ollama server) instead of a client URL like "http://localhost:11434".
func normalizeOllamaHost(host string) string {
	if host == "" || host == "0.0.0.0" || host == "0.0.0.0:11434" {
		return "http://localhost:11434"
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		return "http://" + host
	}
	return host
}
