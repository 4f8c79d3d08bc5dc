package classification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage_server/core/agent/llm"
	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/logger"
)

// scriptedModel answers by matching a substring of the prompt, so concurrent
// per-item calls get deterministic replies.
type scriptedModel struct {
	mu      sync.Mutex
	replies map[string]reply
	calls   []out.GenerateRequest
}

type reply struct {
	text string
	err  error
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Generate(ctx context.Context, req out.GenerateRequest) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	for key, r := range m.replies {
		if strings.Contains(req.Prompt, key) {
			return r.text, r.err
		}
	}
	return "", errors.New("no scripted reply")
}

func newTestClassifier(m out.ModelInvoker, opts ...Option) *Classifier {
	return NewClassifier(m, append([]Option{WithLogger(logger.Nop())}, opts...)...)
}

var threeEmails = []domain.Email{
	{ID: "e1", From: "boss@corp.com", Subject: "Board meeting", Snippet: "tomorrow 9am"},
	{ID: "e2", From: "noreply@shop.com", Subject: "Flash sale"},
	{ID: "e3", From: "friend@social.net", Subject: "Tagged you"},
}

func TestClassifySingle(t *testing.T) {
	m := &scriptedModel{replies: map[string]reply{
		"Board meeting": {text: `Sure! {"category":"Important","confidence":0.9,"reasoning":"From a manager"}`},
		"Flash sale":    {text: `{"category":"Deals","confidence":7}`},
		"Tagged you":    {text: `{"category":"Social"}`},
	}}

	got, err := newTestClassifier(m).ClassifySingle(context.Background(), threeEmails)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, threeEmails[0], got[0].Email, "email fields are echoed")
	assert.Equal(t, domain.CategoryImportant, got[0].Category)
	assert.Equal(t, 0.9, got[0].Confidence)
	assert.Equal(t, "From a manager", got[0].Reasoning)

	assert.Equal(t, domain.CategoryGeneral, got[1].Category, "unknown category maps to General")
	assert.Equal(t, 1.0, got[1].Confidence)

	assert.Equal(t, domain.CategorySocial, got[2].Category)
	assert.Equal(t, 0.5, got[2].Confidence)
	assert.Equal(t, domain.ReasoningCompleted, got[2].Reasoning)

	for _, req := range m.calls {
		assert.Equal(t, llm.MaxTokensSingle, req.MaxOutputTokens)
		assert.Equal(t, llm.Temperature, req.Temperature)
	}
}

func TestClassifyAdvancedIsolatesFailures(t *testing.T) {
	m := &scriptedModel{replies: map[string]reply{
		"Board meeting": {err: errors.New("connection reset")},
		"Flash sale":    {text: "I am not sure how to classify this one."},
		"Tagged you": {text: `{"category":"Social","confidence":0.8,"priority":"low",
			"tags":["social","notification","a","b","c","d"],"actionRequired":false,"reasoning":"Tag notice"}`},
	}}

	got, err := newTestClassifier(m).ClassifyAdvanced(context.Background(), threeEmails)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, domain.AdvancedClassification{
		ID: "e1", Category: domain.CategoryGeneral, Confidence: 0, Priority: domain.PriorityMedium,
		Tags: []string{}, Reasoning: domain.ReasoningError,
	}, got[0])

	assert.Equal(t, domain.AdvancedClassification{
		ID: "e2", Category: domain.CategoryGeneral, Confidence: 0.5, Priority: domain.PriorityMedium,
		Tags: []string{}, Reasoning: domain.ReasoningParseError,
	}, got[1])

	assert.Equal(t, "e3", got[2].ID)
	assert.Equal(t, domain.CategorySocial, got[2].Category)
	assert.Equal(t, domain.PriorityLow, got[2].Priority)
	assert.Equal(t, []string{"social", "notification", "a", "b", "c"}, got[2].Tags)
	assert.Equal(t, "Tag notice", got[2].Reasoning)
}

func TestClassifySingleInvalidJSONSpanFallsBackAsParseFailure(t *testing.T) {
	m := &scriptedModel{replies: map[string]reply{
		"Board meeting": {text: `{category: Important}`},
	}}

	got, err := newTestClassifier(m).ClassifySingle(context.Background(), threeEmails[:1])
	require.NoError(t, err)
	assert.Equal(t, 0.5, got[0].Confidence)
	assert.Equal(t, domain.ReasoningParseError, got[0].Reasoning)
}

func TestPerItemModesEmptyInput(t *testing.T) {
	c := newTestClassifier(&scriptedModel{})

	single, err := c.ClassifySingle(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, single)
	assert.Empty(t, single)

	adv, err := c.ClassifyAdvanced(context.Background(), []domain.Email{})
	require.NoError(t, err)
	assert.NotNil(t, adv)
	assert.Empty(t, adv)
}

func TestFanOutRespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	m := out.ModelInvokerFunc(func(ctx context.Context, req out.GenerateRequest) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return `{"category":"General","confidence":0.6}`, nil
	})

	emails := make([]domain.Email, 12)
	for i := range emails {
		emails[i] = domain.Email{ID: string(rune('a' + i))}
	}

	got, err := newTestClassifier(m, WithMaxConcurrency(3)).ClassifySingle(context.Background(), emails)
	require.NoError(t, err)
	require.Len(t, got, 12)
	for i, r := range got {
		assert.Equal(t, emails[i].ID, r.ID, "results keep input order")
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestClassifyBatch(t *testing.T) {
	t.Run("rows are matched by position", func(t *testing.T) {
		m := &scriptedModel{replies: map[string]reply{
			"Classify these emails": {text: "Here are the results:\n" + `[
				{"index":1,"category":"Important","confidence":0.95},
				{"index":2,"category":"Promotions","confidence":"0.8"},
				{"index":3,"category":"Chatter","confidence":-1}
			]`},
		}}

		got, err := newTestClassifier(m).ClassifyBatch(context.Background(), threeEmails)
		require.NoError(t, err)
		assert.Equal(t, []domain.BatchClassification{
			{ID: "e1", Category: domain.CategoryImportant, Confidence: 0.95},
			{ID: "e2", Category: domain.CategoryPromotions, Confidence: 0.8},
			{ID: "e3", Category: domain.CategoryGeneral, Confidence: 0},
		}, got)
		require.Len(t, m.calls, 1, "batch mode makes exactly one call")
		assert.Equal(t, llm.MaxTokensBatch, m.calls[0].MaxOutputTokens)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := newTestClassifier(&scriptedModel{}).ClassifyBatch(context.Background(), nil)
		assert.ErrorIs(t, err, ErrNoEmails)
	})

	t.Run("no array fails the whole call", func(t *testing.T) {
		m := &scriptedModel{replies: map[string]reply{
			"Classify these emails": {text: `{"category":"Spam"}`},
		}}
		got, err := newTestClassifier(m).ClassifyBatch(context.Background(), threeEmails)
		assert.ErrorIs(t, err, llm.ErrParse)
		assert.Nil(t, got)
	})

	t.Run("model failure fails the whole call", func(t *testing.T) {
		m := &scriptedModel{replies: map[string]reply{
			"Classify these emails": {err: errors.New("timeout")},
		}}
		_, err := newTestClassifier(m).ClassifyBatch(context.Background(), threeEmails)
		assert.ErrorIs(t, err, llm.ErrModelInvocation)
	})

	t.Run("row count mismatch fails the whole call", func(t *testing.T) {
		m := &scriptedModel{replies: map[string]reply{
			"Classify these emails": {text: `[{"category":"Spam","confidence":0.9}]`},
		}}
		_, err := newTestClassifier(m).ClassifyBatch(context.Background(), threeEmails)
		assert.ErrorIs(t, err, ErrRowCountMismatch)
		assert.ErrorIs(t, err, llm.ErrParse)
	})
}

func TestWithModelSwapsInvoker(t *testing.T) {
	base := newTestClassifier(&scriptedModel{}, WithMaxConcurrency(2))
	alt := base.WithModel(out.ModelInvokerFunc(func(ctx context.Context, req out.GenerateRequest) (string, error) {
		return `{"category":"Spam","confidence":0.99}`, nil
	}))

	got, err := alt.ClassifySingle(context.Background(), threeEmails[:1])
	require.NoError(t, err)
	assert.Equal(t, domain.CategorySpam, got[0].Category)
	assert.Equal(t, 2, alt.maxConcurrency)
}
