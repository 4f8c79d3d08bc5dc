package in

import (
	"context"

	"triage_server/core/domain"
)

// ClassificationService classifies emails with one of three strategies.
// Single and advanced modes isolate per-email failures into fallback
// results; batch mode fails as a whole.
type ClassificationService interface {
	ClassifySingle(ctx context.Context, emails []domain.Email) ([]domain.EnrichedClassification, error)
	ClassifyBatch(ctx context.Context, emails []domain.Email) ([]domain.BatchClassification, error)
	ClassifyAdvanced(ctx context.Context, emails []domain.Email) ([]domain.AdvancedClassification, error)
}

// DashboardService is the client-side view over fetched mail and the
// persisted classified map.
type DashboardService interface {
	Load(ctx context.Context) ([]domain.EmailView, error)
	ClassifyPending(ctx context.Context, views []domain.EmailView, mode domain.Mode) ([]domain.EmailView, int, error)
	Clear(ctx context.Context) error
}
