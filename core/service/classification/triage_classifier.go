// Package classification turns emails into validated category assignments
// using a text-generation model.
package classification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"triage_server/core/agent/llm"
	"triage_server/core/domain"
	"triage_server/core/port/in"
	"triage_server/core/port/out"
	"triage_server/pkg/logger"
	"triage_server/pkg/metrics"
)

// DefaultMaxConcurrency bounds in-flight model calls for per-item modes.
const DefaultMaxConcurrency = 8

// ErrNoEmails is returned by batch mode for an empty input list.
var ErrNoEmails = errors.New("no emails to classify")

// ErrRowCountMismatch is returned by batch mode when the model's array does
// not have one row per input email.
var ErrRowCountMismatch = errors.New("classification row count does not match email count")

var _ in.ClassificationService = (*Classifier)(nil)

// Classifier implements the three classification strategies over one
// ModelInvoker. It holds no per-request state and is safe for concurrent use.
type Classifier struct {
	model          out.ModelInvoker
	maxConcurrency int
	log            *logger.Logger
}

type Option func(*Classifier)

// WithMaxConcurrency bounds per-item fan-out; n <= 0 means unbounded.
func WithMaxConcurrency(n int) Option {
	return func(c *Classifier) {
		c.maxConcurrency = n
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Classifier) {
		c.log = l
	}
}

func NewClassifier(model out.ModelInvoker, opts ...Option) *Classifier {
	c := &Classifier{
		model:          model,
		maxConcurrency: DefaultMaxConcurrency,
		log:            logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithModel returns a copy of c that calls model instead, used when a
// request brings its own provider key.
func (c *Classifier) WithModel(model out.ModelInvoker) *Classifier {
	cp := *c
	cp.model = model
	return &cp
}

// ClassifySingle classifies each email in its own model call. Failures are
// isolated into fallback results, so the error is only non-nil if ctx is
// already done before any work starts.
func (c *Classifier) ClassifySingle(ctx context.Context, emails []domain.Email) ([]domain.EnrichedClassification, error) {
	results := make([]domain.EnrichedClassification, len(emails))
	err := c.fanOut(ctx, emails, func(ctx context.Context, i int, e domain.Email) {
		obj, err := c.classifyObject(ctx, llm.BuildSinglePrompt(e), e.ID)
		if err != nil {
			results[i] = enrichedFallback(e, errors.Is(err, llm.ErrParse))
			return
		}
		results[i] = NormalizeEnriched(e, obj)
	})
	return results, err
}

// ClassifyAdvanced is ClassifySingle with priority, tags and an action flag.
func (c *Classifier) ClassifyAdvanced(ctx context.Context, emails []domain.Email) ([]domain.AdvancedClassification, error) {
	results := make([]domain.AdvancedClassification, len(emails))
	err := c.fanOut(ctx, emails, func(ctx context.Context, i int, e domain.Email) {
		obj, err := c.classifyObject(ctx, llm.BuildAdvancedPrompt(e), e.ID)
		if err != nil {
			results[i] = advancedFallback(e, errors.Is(err, llm.ErrParse))
			return
		}
		results[i] = NormalizeAdvanced(e, obj)
	})
	return results, err
}

// ClassifyBatch classifies all emails in one model call. Output rows are
// matched to emails by position. Any invocation or parse failure, or a row
// count that differs from len(emails), fails the whole call.
func (c *Classifier) ClassifyBatch(ctx context.Context, emails []domain.Email) ([]domain.BatchClassification, error) {
	mode := string(domain.ModeBatch)
	if len(emails) == 0 {
		return nil, ErrNoEmails
	}

	text, err := c.generate(ctx, llm.BuildBatchPrompt(emails))
	if err != nil {
		metrics.RecordClassifications(mode, metrics.OutcomeFailed, len(emails))
		return nil, err
	}

	rows, err := llm.ExtractArray(text)
	if err != nil {
		metrics.RecordClassifications(mode, metrics.OutcomeFailed, len(emails))
		return nil, err
	}
	if len(rows) != len(emails) {
		metrics.RecordClassifications(mode, metrics.OutcomeFailed, len(emails))
		return nil, fmt.Errorf("%w: %w: got %d rows for %d emails", llm.ErrParse, ErrRowCountMismatch, len(rows), len(emails))
	}

	metrics.RecordClassifications(mode, metrics.OutcomeOK, len(emails))
	return NormalizeBatch(emails, rows), nil
}

// fanOut runs fn once per email with bounded concurrency and waits for all
// of them. fn must write its own slot and never fail.
func (c *Classifier) fanOut(ctx context.Context, emails []domain.Email, fn func(context.Context, int, domain.Email)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var g errgroup.Group
	if c.maxConcurrency > 0 {
		g.SetLimit(c.maxConcurrency)
	}
	for i, e := range emails {
		g.Go(func() error {
			fn(ctx, i, e)
			return nil
		})
	}
	return g.Wait()
}

// classifyObject runs one per-item model call and extracts its JSON object,
// recording the outcome.
func (c *Classifier) classifyObject(ctx context.Context, p llm.Prompt, emailID string) (map[string]any, error) {
	mode := string(p.Mode)

	text, err := c.generate(ctx, p)
	if err == nil {
		var obj map[string]any
		obj, err = llm.ExtractObject(text)
		if err == nil {
			metrics.RecordClassification(mode, metrics.OutcomeOK)
			return obj, nil
		}
	}

	outcome := metrics.OutcomeErrorFallback
	if errors.Is(err, llm.ErrParse) {
		outcome = metrics.OutcomeParseFallback
	}
	metrics.RecordClassification(mode, outcome)
	c.log.WithContext(ctx).WithError(err).WithFields(map[string]any{
		"email_id": emailID,
		"mode":     mode,
		"outcome":  outcome,
	}).Warn("classification fell back")
	return nil, err
}

func (c *Classifier) generate(ctx context.Context, p llm.Prompt) (string, error) {
	start := time.Now()
	text, err := c.model.Generate(ctx, p.Request())
	metrics.RecordModelCall(c.model.Name(), string(p.Mode), err, time.Since(start))
	if err != nil && !errors.Is(err, llm.ErrModelInvocation) {
		err = fmt.Errorf("%w: %w", llm.ErrModelInvocation, err)
	}
	return text, err
}
