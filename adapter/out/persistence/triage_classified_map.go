// Package persistence holds the client device's local stores.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/goccy/go-json"

	"triage_server/core/domain"
	"triage_server/core/port/out"
)

// Keys in the device-local store.
const (
	KeyClassifiedEmails = "classified_emails"
	KeyAccessToken      = "access_token"
	KeyRefreshToken     = "refresh_token"
	KeyTokenExpiry      = "token_expiry"
	KeyOpenAIKey        = "openai_key"
)

var _ out.ClassificationStore = (*ClassifiedMap)(nil)

// ClassifiedMap keeps the email id to ClassificationRecord map as one JSON
// value in a KeyValueStore.
type ClassifiedMap struct {
	mu    sync.Mutex
	store out.KeyValueStore
	key   string
}

func NewClassifiedMap(store out.KeyValueStore) *ClassifiedMap {
	return &ClassifiedMap{store: store, key: KeyClassifiedEmails}
}

// Load returns the persisted map, or an empty map if nothing is stored yet.
func (m *ClassifiedMap) Load(ctx context.Context) (map[string]domain.ClassificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

// Merge overwrites the given ids and keeps every other entry. Applying the
// same records twice leaves the map unchanged.
func (m *ClassifiedMap) Merge(ctx context.Context, records map[string]domain.ClassificationRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.load()
	if err != nil {
		return err
	}
	maps.Copy(current, records)

	raw, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to encode classified map: %w", err)
	}
	return m.store.Set(m.key, string(raw))
}

func (m *ClassifiedMap) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Delete(m.key)
}

func (m *ClassifiedMap) load() (map[string]domain.ClassificationRecord, error) {
	raw, err := m.store.Get(m.key)
	if errors.Is(err, out.ErrKeyNotFound) {
		return map[string]domain.ClassificationRecord{}, nil
	}
	if err != nil {
		return nil, err
	}

	records := map[string]domain.ClassificationRecord{}
	if raw == "" {
		return records, nil
	}
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("failed to decode classified map: %w", err)
	}
	return records, nil
}
