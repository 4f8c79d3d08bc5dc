package out

import (
	"context"

	"triage_server/core/domain"
)

// MailProvider fetches recent messages for the signed-in account.
type MailProvider interface {
	FetchRecent(ctx context.Context, maxResults int64) ([]domain.Email, error)
}

// RemoteClassifier submits emails to the classification service and returns
// one result per input email.
type RemoteClassifier interface {
	Classify(ctx context.Context, mode domain.Mode, emails []domain.Email) ([]domain.ClassificationResult, error)
}
