package out

import (
	"context"
)

// GenerateRequest is a single stateless text-generation call.
type GenerateRequest struct {
	SystemInstruction string
	Prompt            string
	Temperature       float64
	MaxOutputTokens   int
}

// ModelInvoker sends one prompt to a text-generation model and returns the
// raw text. Implementations do not retry and carry no history between calls.
type ModelInvoker interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	// Name identifies the provider and model, e.g. "openai:gpt-4o-mini".
	Name() string
}

// ModelInvokerFunc adapts a function to ModelInvoker.
type ModelInvokerFunc func(ctx context.Context, req GenerateRequest) (string, error)

func (f ModelInvokerFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}

func (f ModelInvokerFunc) Name() string { return "func" }
