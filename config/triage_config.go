package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"triage_server/pkg/apperr"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// LLM
	LLMProvider       string
	LLMModel          string
	OpenAIAPIKey      string
	AnthropicAPIKey   string
	GeminiAPIKey      string
	LLMMaxConcurrency int
	LLMBreakerEnabled bool

	// Redis (rate limiting only)
	RedisURL           string
	RateLimitPerMinute int

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	AppURL             string

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// LLM
		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		LLMModel:          getEnv("LLM_MODEL", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		LLMMaxConcurrency: getEnvInt("LLM_MAX_CONCURRENCY", 8),
		LLMBreakerEnabled: getEnvBool("LLM_BREAKER_ENABLED", true),

		// Redis
		RedisURL:           getEnv("REDIS_URL", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		// OAuth - Google
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		AppURL:             strings.TrimSuffix(getEnv("APP_URL", "http://localhost:3000"), "/"),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}

	switch cfg.LLMProvider {
	case "openai", "anthropic", "gemini":
	default:
		return nil, apperr.ConfigError(fmt.Sprintf("unsupported LLM_PROVIDER %q", cfg.LLMProvider))
	}

	return cfg, nil
}

// LLMAPIKey returns the key configured for the selected provider.
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case "anthropic":
		return c.AnthropicAPIKey
	case "gemini":
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}

// OAuthRedirectURL is the callback registered with Google.
func (c *Config) OAuthRedirectURL() string {
	return c.AppURL + "/api/auth/callback"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
