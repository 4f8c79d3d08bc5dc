package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"triage_server/adapter/out/provider"
	"triage_server/pkg/apperr"
)

const loginTimeout = 5 * time.Minute

func newLoginCmd(app *App) *cobra.Command {
	var accessToken, refreshToken string
	var expiresIn int64

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Gmail",
		Long: `Sign in with Google. By default a temporary listener on 127.0.0.1 receives
the OAuth redirect. Tokens handed over by the server's /api/auth/callback can
be stored directly with --access-token and --refresh-token.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var tok *oauth2.Token
			if accessToken != "" {
				tok = &oauth2.Token{AccessToken: accessToken, RefreshToken: refreshToken, TokenType: "Bearer"}
				if expiresIn > 0 {
					tok.Expiry = time.Now().Add(time.Duration(expiresIn) * time.Second)
				}
			} else {
				flow := app.googleOAuth()
				if !flow.Configured() {
					return errors.New("google-client-id and google-client-secret must be configured")
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
				defer cancel()

				var err error
				tok, err = loopbackLogin(ctx, flow, cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}

			if err := app.tokens.Save(tok); err != nil {
				return fmt.Errorf("failed to save tokens: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed in.")
			return nil
		},
	}

	cmd.Flags().StringVar(&accessToken, "access-token", "", "access token from the server callback")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "refresh token from the server callback")
	cmd.Flags().Int64Var(&expiresIn, "expires-in", 0, "access token lifetime in seconds")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored Google tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.tokens.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

// loopbackLogin runs the authorization-code flow with a redirect to a
// one-shot listener on 127.0.0.1.
func loopbackLogin(ctx context.Context, flow *provider.GoogleOAuth, w io.Writer) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}

	flow = flow.WithRedirectURL(fmt.Sprintf("http://%s/callback", ln.Addr()))
	state := uuid.NewString()
	codes := make(chan callbackResult, 1)

	srv := &http.Server{
		Handler:           callbackHandler(state, codes),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	fmt.Fprintf(w, "Open this URL in your browser to sign in:\n\n  %s\n\n", flow.AuthURL(state))

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("login aborted: %w", ctx.Err())
	case res := <-codes:
		if res.err != nil {
			return nil, res.err
		}
		token, err := flow.Exchange(ctx, res.code)
		if err != nil {
			return nil, apperr.OAuthFailed("google", err)
		}
		return token, nil
	}
}

type callbackResult struct {
	code string
	err  error
}

// callbackHandler accepts the first redirect carrying the expected state.
// Requests with any other state are rejected without ending the flow.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "invalid state", http.StatusBadRequest)
			return
		}

		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = apperr.OAuthFailed("google", fmt.Errorf("authorization failed: %s", q.Get("error")))
		case q.Get("code") == "":
			res.err = apperr.OAuthFailed("google", errors.New("authorization failed: no_code"))
		default:
			res.code = q.Get("code")
		}

		select {
		case results <- res:
		default:
		}

		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Signed in. You can close this tab.")
	})
	return mux
}
