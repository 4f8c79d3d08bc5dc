package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/apperr"
	"triage_server/pkg/httputil"
	"triage_server/pkg/logger"
)

const (
	DefaultMaxResults = 20

	unknownSender = "Unknown"
	noSubject     = "(No Subject)"

	// messageFetchConcurrency bounds parallel messages.get calls.
	messageFetchConcurrency = 10
)

var _ out.MailProvider = (*GmailAdapter)(nil)

// GmailAdapter fetches recent messages for one signed-in account.
type GmailAdapter struct {
	tokens oauth2.TokenSource
	cb     *gobreaker.CircuitBreaker
	opts   []option.ClientOption
}

func NewGmailAdapter(tokens oauth2.TokenSource) *GmailAdapter {
	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		// Client errors say nothing about the API's health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) {
				switch apiErr.Code {
				case 400, 401, 403, 404:
					return true
				}
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}

	return &GmailAdapter{
		tokens: tokens,
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// WithClientOptions overrides the Gmail client options, e.g. the endpoint in tests.
func (a *GmailAdapter) WithClientOptions(opts ...option.ClientOption) *GmailAdapter {
	a.opts = opts
	return a
}

func (a *GmailAdapter) getService(ctx context.Context) (*gmail.Service, error) {
	if a.opts != nil {
		return gmail.NewService(ctx, a.opts...)
	}
	client := &http.Client{
		Transport: &oauth2.Transport{Source: a.tokens, Base: httputil.GmailClient().Transport},
		Timeout:   httputil.GmailClient().Timeout,
	}
	return gmail.NewService(ctx, option.WithHTTPClient(client))
}

// FetchRecent lists the newest maxResults message ids and fetches each one
// concurrently. The result keeps list order.
func (a *GmailAdapter) FetchRecent(ctx context.Context, maxResults int64) ([]domain.Email, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	svc, err := a.getService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	var list *gmail.ListMessagesResponse
	err = a.executeWithCircuitBreaker("messages.list", func() error {
		var err error
		list, err = svc.Users.Messages.List("me").MaxResults(maxResults).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, apperr.ExternalError("gmail", fmt.Errorf("failed to list messages: %w", err))
	}

	emails := make([]domain.Email, len(list.Messages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(messageFetchConcurrency)
	for i, ref := range list.Messages {
		g.Go(func() error {
			var msg *gmail.Message
			err := a.executeWithCircuitBreaker("messages.get", func() error {
				var err error
				msg, err = svc.Users.Messages.Get("me", ref.Id).
					Format("metadata").
					MetadataHeaders("From", "Subject").
					Context(gctx).Do()
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to get message %s: %w", ref.Id, err)
			}
			emails[i] = toEmail(msg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.ExternalError("gmail", err)
	}
	return emails, nil
}

// Profile returns the signed-in account's address.
func (a *GmailAdapter) Profile(ctx context.Context) (string, error) {
	svc, err := a.getService(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create gmail service: %w", err)
	}
	var p *gmail.Profile
	err = a.executeWithCircuitBreaker("users.getProfile", func() error {
		var err error
		p, err = svc.Users.GetProfile("me").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", apperr.ExternalError("gmail", fmt.Errorf("failed to get profile: %w", err))
	}
	return p.EmailAddress, nil
}

func toEmail(msg *gmail.Message) domain.Email {
	e := domain.Email{
		ID:      msg.Id,
		From:    unknownSender,
		Subject: noSubject,
		Snippet: msg.Snippet,
	}
	if msg.InternalDate != 0 {
		e.InternalDate = strconv.FormatInt(msg.InternalDate, 10)
	}
	if msg.Payload == nil {
		return e
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "From":
			if h.Value != "" {
				e.From = h.Value
			}
		case "Subject":
			if h.Value != "" {
				e.Subject = h.Value
			}
		}
	}
	return e
}

func (a *GmailAdapter) executeWithCircuitBreaker(operation string, fn func() error) error {
	_, err := a.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
		logger.WithField("operation", operation).
			WithField("state", a.cb.State().String()).
			Warn("gmail call rejected by circuit breaker")
	}
	return err
}
