package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage_server/core/domain"
	"triage_server/core/port/out"
)

func TestBuildSinglePrompt(t *testing.T) {
	tests := []struct {
		name  string
		email domain.Email
		want  string
	}{
		{
			name:  "with snippet",
			email: domain.Email{ID: "1", From: "boss@corp.com", Subject: "Q3 review", Snippet: "Please send the deck"},
			want:  "From: boss@corp.com\nSubject: Q3 review\nPreview: Please send the deck",
		},
		{
			name:  "empty snippet uses placeholder",
			email: domain.Email{ID: "2", From: "a@b.c", Subject: "hi"},
			want:  "From: a@b.c\nSubject: hi\nPreview: No preview available",
		},
		{
			name:  "body is ignored",
			email: domain.Email{ID: "3", From: "a@b.c", Subject: "hi", Snippet: "s", Body: "long body"},
			want:  "From: a@b.c\nSubject: hi\nPreview: s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := BuildSinglePrompt(tt.email)
			assert.Equal(t, tt.want, p.User)
			assert.Equal(t, domain.ModeSingle, p.Mode)
			assert.Equal(t, MaxTokensSingle, p.MaxTokens)
			for _, c := range domain.CategoryNames() {
				assert.Contains(t, p.System, c)
			}
		})
	}
}

func TestBuildAdvancedPrompt(t *testing.T) {
	t.Run("body is truncated to MaxBodyChars characters", func(t *testing.T) {
		body := strings.Repeat("é", MaxBodyChars+40)
		p := BuildAdvancedPrompt(domain.Email{From: "x", Subject: "y", Snippet: "z", Body: body})

		idx := strings.Index(p.User, "\nBody: ")
		require.GreaterOrEqual(t, idx, 0)
		excerpt := p.User[idx+len("\nBody: "):]
		assert.Equal(t, MaxBodyChars, len([]rune(excerpt)))
		assert.Equal(t, MaxTokensAdvanced, p.MaxTokens)
	})

	t.Run("no body line without body", func(t *testing.T) {
		p := BuildAdvancedPrompt(domain.Email{From: "x", Subject: "y"})
		assert.NotContains(t, p.User, "Body:")
		assert.Contains(t, p.System, "high|medium|low")
	})
}

func TestBuildBatchPrompt(t *testing.T) {
	emails := []domain.Email{
		{ID: "a", From: "alice@x.com", Subject: "Lunch?"},
		{ID: "b", From: "deals@shop.com", Subject: "50% off"},
	}

	p := BuildBatchPrompt(emails)

	assert.Equal(t, "Classify these emails:\n\n1. From: alice@x.com | Subject: Lunch?\n2. From: deals@shop.com | Subject: 50% off", p.User)
	assert.Equal(t, MaxTokensBatch, p.MaxTokens)

	req := p.Request()
	assert.Equal(t, Temperature, req.Temperature)
	assert.Equal(t, p.System, req.SystemInstruction)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "한국", truncateRunes("한국어", 2))
	assert.Equal(t, "", truncateRunes("abc", 0))
}

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
		wantCat any
	}{
		{name: "bare object", text: `{"category":"Spam"}`, wantCat: "Spam"},
		{name: "prose around object", text: "Sure! Here you go: {\"category\":\"Social\"} Hope it helps.", wantCat: "Social"},
		{name: "markdown fence", text: "```json\n{\"category\":\"General\"}\n```", wantCat: "General"},
		{name: "nested braces", text: `{"category":"Important","meta":{"a":1}}`, wantCat: "Important"},
		{name: "no braces", text: "I cannot classify this", wantErr: true},
		{name: "empty", text: "", wantErr: true},
		{name: "close before open", text: "} nope {", wantErr: true},
		{name: "invalid json in span", text: "{category: Spam}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ExtractObject(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCat, obj["category"])
		})
	}
}

func TestExtractArray(t *testing.T) {
	arr, err := ExtractArray("Here:\n[{\"index\":1,\"category\":\"Spam\",\"confidence\":0.9}]\nDone")
	require.NoError(t, err)
	require.Len(t, arr, 1)
	row, ok := arr[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Spam", row["category"])

	_, err = ExtractArray(`{"category":"Spam"}`)
	assert.ErrorIs(t, err, ErrParse)
}

func TestBreakerInvoker(t *testing.T) {
	boom := errors.New("provider down")
	calls := 0
	inner := out.ModelInvokerFunc(func(ctx context.Context, req out.GenerateRequest) (string, error) {
		calls++
		return "", boom
	})

	b := NewBreakerInvoker(inner)
	for i := 0; i < 6; i++ {
		_, err := b.Generate(context.Background(), out.GenerateRequest{})
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Generate(context.Background(), out.GenerateRequest{})
	assert.ErrorIs(t, err, ErrModelInvocation)
	assert.Equal(t, 6, calls, "open circuit must not reach the provider")
}

func TestBreakerInvokerPassesText(t *testing.T) {
	inner := out.ModelInvokerFunc(func(ctx context.Context, req out.GenerateRequest) (string, error) {
		return `{"category":"General"}`, nil
	})
	text, err := NewBreakerInvoker(inner).Generate(context.Background(), out.GenerateRequest{})
	require.NoError(t, err)
	assert.Equal(t, `{"category":"General"}`, text)
}

func TestNewInvoker(t *testing.T) {
	ctx := context.Background()

	_, err := NewInvoker(ctx, InvokerConfig{Provider: ProviderOpenAI})
	assert.Error(t, err)

	_, err = NewInvoker(ctx, InvokerConfig{Provider: "mystery", APIKey: "k"})
	assert.Error(t, err)

	inv, err := NewInvoker(ctx, InvokerConfig{Provider: ProviderAnthropic, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic:"+DefaultAnthropicModel, inv.Name())

	inv, err = NewInvoker(ctx, InvokerConfig{APIKey: "k", Model: "gpt-4o", Breaker: true})
	require.NoError(t, err)
	assert.IsType(t, &BreakerInvoker{}, inv)
	assert.Equal(t, "openai:gpt-4o", inv.Name())
}
