package llm

import (
	"context"
	"fmt"
	"strings"

	"triage_server/core/port/out"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// InvokerConfig selects and configures a model provider.
type InvokerConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Breaker  bool
}

// NewInvoker builds the ModelInvoker for cfg.Provider, wrapped in a circuit
// breaker when cfg.Breaker is set.
func NewInvoker(ctx context.Context, cfg InvokerConfig) (out.ModelInvoker, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", cfg.Provider)
	}

	var inv out.ModelInvoker
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		inv = NewClientWithConfig(ClientConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	case ProviderAnthropic:
		inv = NewAnthropicClient(AnthropicConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	case ProviderGemini:
		g, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		inv = g
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}

	if cfg.Breaker {
		return NewBreakerInvoker(inv), nil
	}
	return inv, nil
}
