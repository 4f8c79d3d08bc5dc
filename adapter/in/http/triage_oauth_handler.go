package http

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"

	"triage_server/pkg/logger"
)

// OAuthProvider is the authorization-code flow the handler drives.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// OAuthHandler redirects to Google consent and hands the resulting tokens to
// the client app. The server keeps no session.
type OAuthHandler struct {
	provider  OAuthProvider
	appURL    string
	errorCode func(error) string
}

func NewOAuthHandler(provider OAuthProvider, appURL string, errorCode func(error) string) *OAuthHandler {
	return &OAuthHandler{
		provider:  provider,
		appURL:    appURL,
		errorCode: errorCode,
	}
}

func (h *OAuthHandler) Register(app fiber.Router) {
	auth := app.Group("/api/auth")
	auth.Get("/google", h.Connect)
	auth.Get("/callback", h.Callback)
}

func (h *OAuthHandler) Connect(c *fiber.Ctx) error {
	return c.Redirect(h.provider.AuthURL(""), fiber.StatusTemporaryRedirect)
}

func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	if providerErr := c.Query("error"); providerErr != "" {
		logger.WithField("error", providerErr).Warn("[OAuth Callback] provider returned error")
		return h.redirectError(c, providerErr)
	}

	code := c.Query("code")
	if code == "" {
		return h.redirectError(c, "no_code")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 30*time.Second)
	defer cancel()

	token, err := h.provider.Exchange(ctx, code)
	if err != nil {
		logger.WithContext(c.UserContext()).WithError(err).Error("[OAuth Callback] token exchange failed")
		reason := "auth_failed"
		if h.errorCode != nil {
			if code := h.errorCode(err); code != "" {
				reason = code
			}
		}
		return h.redirectError(c, reason)
	}

	q := url.Values{}
	q.Set("access_token", token.AccessToken)
	q.Set("refresh_token", token.RefreshToken)
	q.Set("expires_in", strconv.FormatInt(expiresIn(token), 10))

	return c.Redirect(h.appURL+"/dashboard?"+q.Encode(), fiber.StatusTemporaryRedirect)
}

func (h *OAuthHandler) redirectError(c *fiber.Ctx, reason string) error {
	return c.Redirect(h.appURL+"?error="+url.QueryEscape(reason), fiber.StatusTemporaryRedirect)
}

// expiresIn returns the token lifetime in seconds as reported by the
// provider, falling back to the remaining time until Expiry.
func expiresIn(t *oauth2.Token) int64 {
	if t.ExpiresIn > 0 {
		return t.ExpiresIn
	}
	if t.Expiry.IsZero() {
		return 0
	}
	return int64(time.Until(t.Expiry).Seconds())
}
