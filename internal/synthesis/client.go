// Package synthesis talks to the chat-completion model that proposes surface
// variants of canonical terms.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Default request parameters.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 300
)

// ErrEmptyPrompt is returned when the user prompt is blank.
var ErrEmptyPrompt = errors.New("synthesis: prompt cannot be empty")

// Completer produces a single free-text completion for a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ChatClient implements Completer against an OpenAI-compatible chat endpoint (OpenRouter by default).
type ChatClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	limiter     *rate.Limiter
	referer     string
	title       string
}

var _ Completer = (*ChatClient)(nil)

// Option configures a ChatClient.
type Option func(*ChatClient)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(c *ChatClient) { c.temperature = t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(c *ChatClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithRateLimit limits outgoing requests to rps per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *ChatClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithAppIdentity sets the HTTP-Referer and X-Title headers OpenRouter uses to
// attribute traffic. Empty values are not sent.
func WithAppIdentity(referer, title string) Option {
	return func(c *ChatClient) {
		c.referer = referer
		c.title = title
	}
}

// identityTransport adds the app identity headers to every request.
type identityTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *identityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}

	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}

	return t.base.RoundTrip(req)
}

// NewChatClient creates a chat client. baseURL defaults to the public OpenAI
// endpoint when empty.
func NewChatClient(apiKey, baseURL, model string, opts ...Option) *ChatClient {
	c := &ChatClient{
		model:       model,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}

	for _, opt := range opts {
		opt(c)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}

	if c.referer != "" || c.title != "" {
		cfg.HTTPClient = &http.Client{
			Transport: &identityTransport{base: http.DefaultTransport, referer: c.referer, title: c.title},
		}
	}

	c.client = openai.NewClientWithConfig(cfg)

	return c
}

// Complete sends one chat completion request and returns the first choice's text.
// An answer without choices yields an empty string.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", ErrEmptyPrompt
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}

	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
