package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4o-mini"
	defaultTemperature = 0.7
	defaultTimeout     = 30 * time.Second
)

// ErrNoText is returned when the completion carries no assistant text.
var ErrNoText = errors.New("openai: response has no choice text")

// KeyResolver returns the API key, typically from SSM.
type KeyResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	Err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d: %v", e.StatusCode, e.Err)
}

func (e *HTTPStatusError) Unwrap() error {
	return e.Err
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client generates text with the OpenAI chat completions API. It is an
// alternative to the Gemini client behind the same generation contract.
type Client struct {
	baseURL     string
	model       string
	temperature float32
	httpClient  *http.Client
	key         KeyResolver
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if m := strings.TrimSpace(model); m != "" {
			c.model = m
		}
	}
}

func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = float32(t)
	}
}

// NewClient creates a Client whose API key is obtained from key on demand.
func NewClient(key KeyResolver, opts ...Option) (*Client, error) {
	if key == nil {
		return nil, errors.New("openai: key resolver must not be nil")
	}
	c := &Client{
		baseURL:     defaultBaseURL,
		model:       defaultModel,
		temperature: defaultTemperature,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		key:         key,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ready reports whether the API key can be resolved.
func (c *Client) Ready(ctx context.Context) error {
	_, err := c.key.Resolve(ctx)
	return err
}

func (c *Client) api(apiKey string) *goopenai.Client {
	cfg := goopenai.DefaultConfig(apiKey)
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	cfg.BaseURL = base
	if c.httpClient != nil {
		cfg.HTTPClient = c.httpClient
	}
	return goopenai.NewClientWithConfig(cfg)
}

// Generate sends prompt as a single user message and returns the first
// choice's content.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	apiKey, err := c.key.Resolve(ctx)
	if err != nil {
		return "", fmt.Errorf("openai: resolve api key: %w", err)
	}

	resp, err := c.api(apiKey).CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", withStatus(err))
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoText
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// withStatus exposes the upstream HTTP status of go-openai errors through
// HTTPStatusCode.
func withStatus(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return err
}
