package persistence

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"triage_server/core/port/out"
)

// ErrNotLoggedIn is returned when no access token is stored.
var ErrNotLoggedIn = errors.New("not logged in")

// TokenStore keeps the Google tokens under the same keys the web client
// used, so a token pair handed over by the OAuth callback can be stored as-is.
type TokenStore struct {
	store out.KeyValueStore
}

func NewTokenStore(store out.KeyValueStore) *TokenStore {
	return &TokenStore{store: store}
}

func (s *TokenStore) Save(t *oauth2.Token) error {
	if t == nil || t.AccessToken == "" {
		return errors.New("empty access token")
	}
	if err := s.store.Set(KeyAccessToken, t.AccessToken); err != nil {
		return err
	}
	if t.RefreshToken != "" {
		if err := s.store.Set(KeyRefreshToken, t.RefreshToken); err != nil {
			return err
		}
	}
	if !t.Expiry.IsZero() {
		return s.store.Set(KeyTokenExpiry, strconv.FormatInt(t.Expiry.Unix(), 10))
	}
	return s.store.Delete(KeyTokenExpiry)
}

// Load returns the stored token. A token without a known expiry is treated
// as expired so the first use refreshes it when a refresh token exists.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	access, err := s.store.Get(KeyAccessToken)
	if errors.Is(err, out.ErrKeyNotFound) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, err
	}

	t := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if refresh, err := s.store.Get(KeyRefreshToken); err == nil {
		t.RefreshToken = refresh
	}

	t.Expiry = time.Unix(1, 0)
	if exp, err := s.store.Get(KeyTokenExpiry); err == nil {
		if sec, err := strconv.ParseInt(exp, 10, 64); err == nil {
			t.Expiry = time.Unix(sec, 0)
		}
	}
	if t.RefreshToken == "" && t.Expiry.Equal(time.Unix(1, 0)) {
		// Nothing to refresh with; let the API decide whether it still works.
		t.Expiry = time.Time{}
	}
	return t, nil
}

// Clear removes both tokens.
func (s *TokenStore) Clear() error {
	for _, k := range []string{KeyAccessToken, KeyRefreshToken, KeyTokenExpiry} {
		if err := s.store.Delete(k); err != nil {
			return fmt.Errorf("failed to remove %s: %w", k, err)
		}
	}
	return nil
}

// PersistingSource wraps src and saves every token it hands out that differs
// from the last one seen, so refreshed access tokens survive the process.
func (s *TokenStore) PersistingSource(src oauth2.TokenSource) oauth2.TokenSource {
	return &persistingSource{src: src, store: s}
}

type persistingSource struct {
	mu    sync.Mutex
	src   oauth2.TokenSource
	store *TokenStore
	last  string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	t, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if t.AccessToken != p.last {
		if err := p.store.Save(t); err != nil {
			return nil, err
		}
		p.last = t.AccessToken
	}
	return t, nil
}
