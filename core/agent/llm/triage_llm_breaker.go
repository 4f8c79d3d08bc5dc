package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"triage_server/core/port/out"
	"triage_server/pkg/logger"
)

// BreakerInvoker guards a ModelInvoker with a circuit breaker. While the
// circuit is open calls fail fast with ErrModelInvocation, which per-item
// modes turn into error fallbacks.
type BreakerInvoker struct {
	next out.ModelInvoker
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerInvoker(next out.ModelInvoker) *BreakerInvoker {
	settings := gobreaker.Settings{
		Name:        "model:" + next.Name(),
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		// A caller giving up says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}
	return &BreakerInvoker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerInvoker) Name() string {
	return b.next.Name()
}

func (b *BreakerInvoker) Generate(ctx context.Context, req out.GenerateRequest) (string, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %s: %w", ErrModelInvocation, b.cb.Name(), err)
		}
		return "", err
	}
	text, _ := res.(string)
	return text, nil
}

// State reports the breaker state for readiness checks.
func (b *BreakerInvoker) State() gobreaker.State {
	return b.cb.State()
}
