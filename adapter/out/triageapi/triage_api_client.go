// Package triageapi is the HTTP client for the classification API.
package triageapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"triage_server/core/domain"
	"triage_server/core/port/out"
	"triage_server/pkg/httputil"
)

// headerOpenAIKey forwards the caller's own OpenAI key.
const headerOpenAIKey = "X-OpenAI-Key"

var endpoints = map[domain.Mode]string{
	domain.ModeSingle:   "/api/classify-emails",
	domain.ModeBatch:    "/api/classify-batch",
	domain.ModeAdvanced: "/api/classify-advanced",
}

var _ out.RemoteClassifier = (*Client)(nil)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("classification API returned %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL   string
	openAIKey string
	http      *http.Client
}

type Option func(*Client)

// WithOpenAIKey sends key so the server classifies on the caller's account.
func WithOpenAIKey(key string) Option {
	return func(c *Client) {
		c.openAIKey = key
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httputil.TriageAPIClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type classifyRequest struct {
	Emails []domain.Email `json:"emails"`
}

type classifyResponse struct {
	Classifications []domain.ClassificationResult `json:"classifications"`
	Error           string                        `json:"error"`
}

// Classify posts emails to the endpoint for mode and returns one result per
// email.
func (c *Client) Classify(ctx context.Context, mode domain.Mode, emails []domain.Email) ([]domain.ClassificationResult, error) {
	path, ok := endpoints[mode]
	if !ok {
		return nil, fmt.Errorf("unknown classification mode %q", mode)
	}

	if emails == nil {
		emails = []domain.Email{}
	}
	body, err := json.Marshal(classifyRequest{Emails: emails})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.openAIKey != "" {
		req.Header.Set(headerOpenAIKey, c.openAIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var decoded classifyResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		msg := decoded.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	if len(decoded.Classifications) != len(emails) {
		return nil, fmt.Errorf("classification API returned %d results for %d emails", len(decoded.Classifications), len(emails))
	}
	return decoded.Classifications, nil
}
