package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage_server/pkg/apperr"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "ENV", "LLM_PROVIDER", "LLM_MAX_CONCURRENCY", "LLM_BREAKER_ENABLED", "APP_URL", "ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, 8, cfg.LLMMaxConcurrency)
	assert.True(t, cfg.LLMBreakerEnabled)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, "http://localhost:3000/api/auth/callback", cfg.OAuthRedirectURL())
}

func TestLoadProviderKey(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     string
	}{
		{name: "openai", provider: "openai", want: "sk-openai"},
		{name: "anthropic", provider: "Anthropic", want: "sk-ant"},
		{name: "gemini", provider: "gemini", want: "g-key"},
	}

	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GEMINI_API_KEY", "g-key")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LLM_PROVIDER", tt.provider)
			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.LLMAPIKey())
		})
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "llama")
	_, err := Load()
	require.Error(t, err)

	var appErr *apperr.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeConfigError, appErr.Code)
	assert.Contains(t, appErr.Message, `"llama"`)
}

func TestGetEnvSliceTrims(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, getEnvSlice("ALLOWED_ORIGINS", nil))
}
