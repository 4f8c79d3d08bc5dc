package provider

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"

	"triage_server/pkg/httputil"
)

// GoogleScopes grants read-only mail access plus the account's identity.
var GoogleScopes = []string{
	gmail.GmailReadonlyScope,
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// GoogleOAuthConfig holds the OAuth client registration.
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GoogleOAuth runs the authorization-code flow against Google.
type GoogleOAuth struct {
	config *oauth2.Config
}

func NewGoogleOAuth(cfg GoogleOAuthConfig) *GoogleOAuth {
	return &GoogleOAuth{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       GoogleScopes,
			Endpoint:     google.Endpoint,
		},
	}
}

// WithRedirectURL returns a copy that redirects to url instead.
func (g *GoogleOAuth) WithRedirectURL(url string) *GoogleOAuth {
	cfg := *g.config
	cfg.RedirectURL = url
	return &GoogleOAuth{config: &cfg}
}

func (g *GoogleOAuth) Configured() bool {
	return g.config.ClientID != "" && g.config.ClientSecret != ""
}

// AuthURL returns the consent URL. Offline access with forced consent makes
// Google issue a refresh token on every login.
func (g *GoogleOAuth) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens.
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httputil.DefaultClient())
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	return token, nil
}

// TokenSource refreshes token as needed.
func (g *GoogleOAuth) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httputil.DefaultClient())
	return g.config.TokenSource(ctx, token)
}

// OAuthErrorCode extracts the provider's error code (e.g. "invalid_grant")
// from a failed exchange, or "" when the failure was not a provider reply.
func OAuthErrorCode(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return re.ErrorCode
	}
	return ""
}
