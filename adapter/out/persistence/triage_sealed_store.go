package persistence

import (
	"slices"

	"triage_server/core/port/out"
	"triage_server/pkg/crypto"
)

var _ out.KeyValueStore = (*SealedStore)(nil)

// SecretKeys are the store keys whose values are encrypted at rest.
var SecretKeys = []string{KeyAccessToken, KeyRefreshToken, KeyOpenAIKey}

// SealedStore encrypts the values of secret keys before they reach the
// wrapped store. Other keys pass through untouched.
type SealedStore struct {
	next    out.KeyValueStore
	enc     *crypto.Encryptor
	secrets []string
}

func NewSealedStore(next out.KeyValueStore, enc *crypto.Encryptor) *SealedStore {
	return &SealedStore{next: next, enc: enc, secrets: SecretKeys}
}

func (s *SealedStore) Get(key string) (string, error) {
	v, err := s.next.Get(key)
	if err != nil || !s.isSecret(key) {
		return v, err
	}
	return s.enc.Decrypt(v)
}

func (s *SealedStore) Set(key, value string) error {
	if s.isSecret(key) {
		sealed, err := s.enc.Encrypt(value)
		if err != nil {
			return err
		}
		value = sealed
	}
	return s.next.Set(key, value)
}

func (s *SealedStore) Delete(key string) error {
	return s.next.Delete(key)
}

func (s *SealedStore) isSecret(key string) bool {
	return slices.Contains(s.secrets, key)
}
