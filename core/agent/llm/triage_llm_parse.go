package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

var (
	// ErrParse marks model output with no extractable JSON, or JSON that
	// does not decode.
	ErrParse = errors.New("unable to parse classification response")
	// ErrModelInvocation marks a failed model call (network, provider, timeout).
	ErrModelInvocation = errors.New("model invocation failed")
)

// ExtractObject decodes the span from the first '{' to the last '}' in text.
// Prose around the span is ignored; the span itself must be valid JSON.
func ExtractObject(text string) (map[string]any, error) {
	span, ok := bracketSpan(text, '{', '}')
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrParse)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return obj, nil
}

// ExtractArray decodes the span from the first '[' to the last ']' in text.
func ExtractArray(text string) ([]any, error) {
	span, ok := bracketSpan(text, '[', ']')
	if !ok {
		return nil, fmt.Errorf("%w: no JSON array in response", ErrParse)
	}

	var arr []any
	if err := json.Unmarshal([]byte(span), &arr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return arr, nil
}

// bracketSpan returns text from the first open to the last close bracket,
// inclusive.
func bracketSpan(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, close)
	if end < start {
		return "", false
	}
	return text[start : end+1], true
}
