package cli

import (
	"context"
	"errors"
	"fmt"

	"triage_server/adapter/out/persistence"
	"triage_server/adapter/out/provider"
	"triage_server/adapter/out/triageapi"
	"triage_server/core/port/out"
	"triage_server/core/service/dashboard"
	"triage_server/pkg/crypto"
)

// App carries the CLI's wired dependencies. Fields left nil by options are
// built from Config on first use.
type App struct {
	cfg        *Config
	store      out.KeyValueStore
	tokens     *persistence.TokenStore
	classified *persistence.ClassifiedMap

	mail   out.MailProvider
	remote out.RemoteClassifier
}

type Option func(*App)

// WithStore replaces the store file with kv.
func WithStore(kv out.KeyValueStore) Option {
	return func(a *App) {
		a.store = kv
	}
}

func WithMailProvider(m out.MailProvider) Option {
	return func(a *App) {
		a.mail = m
	}
}

func WithRemoteClassifier(r out.RemoteClassifier) Option {
	return func(a *App) {
		a.remote = r
	}
}

func (a *App) open(cfg *Config) error {
	a.cfg = cfg

	if a.store == nil {
		fs, err := persistence.NewFileStore(cfg.StoreDir)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		a.store = fs
	}
	if cfg.EncryptionKey != "" {
		enc, err := crypto.NewEncryptor([]byte(cfg.EncryptionKey))
		if err != nil {
			return err
		}
		a.store = persistence.NewSealedStore(a.store, enc)
	}

	a.tokens = persistence.NewTokenStore(a.store)
	a.classified = persistence.NewClassifiedMap(a.store)
	return nil
}

func (a *App) googleOAuth() *provider.GoogleOAuth {
	return provider.NewGoogleOAuth(provider.GoogleOAuthConfig{
		ClientID:     a.cfg.GoogleClientID,
		ClientSecret: a.cfg.GoogleClientSecret,
	})
}

// openAIKey prefers the configured key over the stored one.
func (a *App) openAIKey() (string, error) {
	if a.cfg.OpenAIKey != "" {
		return a.cfg.OpenAIKey, nil
	}
	key, err := a.store.Get(persistence.KeyOpenAIKey)
	if errors.Is(err, out.ErrKeyNotFound) {
		return "", nil
	}
	return key, err
}

func (a *App) mailProvider(ctx context.Context) (out.MailProvider, error) {
	if a.mail != nil {
		return a.mail, nil
	}

	tok, err := a.tokens.Load()
	if errors.Is(err, persistence.ErrNotLoggedIn) {
		return nil, errors.New("not logged in, run `triage login` first")
	}
	if err != nil {
		return nil, err
	}

	src := a.tokens.PersistingSource(a.googleOAuth().TokenSource(ctx, tok))
	return provider.NewGmailAdapter(src), nil
}

func (a *App) remoteClassifier() (out.RemoteClassifier, error) {
	if a.remote != nil {
		return a.remote, nil
	}
	key, err := a.openAIKey()
	if err != nil {
		return nil, err
	}
	return triageapi.NewClient(a.cfg.Server, triageapi.WithOpenAIKey(key)), nil
}

func (a *App) dashboard(ctx context.Context) (*dashboard.Service, out.MailProvider, error) {
	mail, err := a.mailProvider(ctx)
	if err != nil {
		return nil, nil, err
	}
	remote, err := a.remoteClassifier()
	if err != nil {
		return nil, nil, err
	}
	return dashboard.NewService(mail, remote, a.classified, a.cfg.MaxResults), mail, nil
}
