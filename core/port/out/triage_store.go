package out

import (
	"context"
	"errors"

	"triage_server/core/domain"
)

// ErrKeyNotFound is returned by KeyValueStore.Get for a missing key.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the device-local string store (the browser localStorage
// contract): synchronous, no transactions, last write wins.
type KeyValueStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// ClassificationStore persists the classified map keyed by email id.
// Merge adds or replaces entries and never drops ids absent from the update.
type ClassificationStore interface {
	Load(ctx context.Context) (map[string]domain.ClassificationRecord, error)
	Merge(ctx context.Context, records map[string]domain.ClassificationRecord) error
	Clear(ctx context.Context) error
}
