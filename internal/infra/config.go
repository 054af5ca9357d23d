package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	GoogleAPIKey    string
	GoogleTextModel string
	GeminiBaseURL   string

	OpenRouterAPIKey    string
	OpenRouterTextModel string
	OpenRouterBaseURL   string

	OpenAIAPIKey    string
	OpenAITextModel string
	OpenAIBaseURL   string

	TextProviderOrder string

	ImageProvider    string
	ImageAPIKey      string
	HuggingFaceModel string

	JobTTL       time.Duration
	JobMaxEvents int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. Provider keys are optional: with no keys the
// service still serves requests through the deterministic template path.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),
		GoogleTextModel: getEnv("GOOGLE_TEXT_MODEL", "gemini-1.5-pro-latest"),
		GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		OpenRouterAPIKey:    os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterTextModel: getEnv("OPENROUTER_TEXT_MODEL", "anthropic/claude-sonnet-4.5"),
		OpenRouterBaseURL:   getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAITextModel: getEnv("OPENAI_TEXT_MODEL", "gpt-4o"),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		TextProviderOrder: strings.ToLower(getEnv("TEXT_PROVIDER_ORDER", "quality")),

		ImageProvider:    strings.ToLower(getEnv("IMAGE_PROVIDER", "auto")),
		ImageAPIKey:      os.Getenv("IMAGE_API_KEY"),
		HuggingFaceModel: getEnv("HUGGINGFACE_IMAGE_MODEL", "black-forest-labs/FLUX.1-schnell"),

		JobTTL:       time.Hour * time.Duration(getEnvInt("JOB_TTL_HOURS", 24)),
		JobMaxEvents: getEnvInt("JOB_MAX_EVENTS", 300),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	return cfg, nil
}

// EffectiveImageAPIKey returns the key image generation should use:
// IMAGE_API_KEY when set, otherwise the Google key.
func (c *Config) EffectiveImageAPIKey() string {
	if c.ImageAPIKey != "" {
		return c.ImageAPIKey
	}
	return c.GoogleAPIKey
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
