package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"triage_server/core/port/out"
	"triage_server/pkg/httputil"
)

const DefaultModel = "gpt-4o-mini"

// Client is the OpenAI chat-completions ModelInvoker.
type Client struct {
	client *openai.Client
	model  string
}

type ClientConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for proxies and tests
}

func NewClient(apiKey string) *Client {
	return NewClientWithConfig(ClientConfig{APIKey: apiKey})
}

func NewClientWithConfig(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.HTTPClient = httputil.LLMClient()
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(oc),
		model:  model,
	}
}

func (c *Client) Name() string {
	return "openai:" + c.model
}

// Generate sends the system instruction and prompt as a two-message chat.
// An empty choice list yields empty text, which the parser rejects.
func (c *Client) Generate(ctx context.Context, req out.GenerateRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.SystemInstruction,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %w", ErrModelInvocation, err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}
