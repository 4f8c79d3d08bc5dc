// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for ClassificationsTotal.
const (
	OutcomeOK            = "ok"
	OutcomeParseFallback = "parse_fallback"
	OutcomeErrorFallback = "error_fallback"
	OutcomeFailed        = "failed"
)

var (
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_classifications_total",
			Help: "Emails classified, by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_model_call_duration_seconds",
			Help:    "Model invocation latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"provider", "mode", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"method", "route", "status"},
	)
)

func RecordClassification(mode, outcome string) {
	ClassificationsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordClassifications adds n results at once, used by batch mode.
func RecordClassifications(mode, outcome string, n int) {
	ClassificationsTotal.WithLabelValues(mode, outcome).Add(float64(n))
}

func RecordModelCall(provider, mode string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ModelCallDuration.WithLabelValues(provider, mode, status).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}
