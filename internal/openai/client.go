// Package openai provides a thin wrapper around the official OpenAI Go SDK for embeddings.
// It targets any OpenAI-compatible /embeddings endpoint, including a self-hosted
// multilingual-e5 server.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

var (
	// ErrEmptyInput is returned when CreateEmbedding is called with empty input.
	ErrEmptyInput = errors.New("openai: input text is empty")
	// ErrInvalidDims is returned when dimensions is not positive.
	ErrInvalidDims = errors.New("openai: embedding dimensions must be positive")
	// ErrNoEmbeddingInResponse is returned when the API response contains no embedding data.
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
	// ErrDimensionMismatch is returned when the response embedding length does not match configured dimensions.
	ErrDimensionMismatch = errors.New("openai: embedding dimension mismatch")
)

const (
	defaultDimension = 768
	defaultModel     = "intfloat/multilingual-e5-base"
	defaultTimeout   = 30 * time.Second
	defaultRetryMax  = 3
)

// Client calls an OpenAI-compatible embeddings API via the official SDK.
type Client struct {
	sdk        openaisdk.Client
	model      string
	dimensions int
	// sendDimensions adds the dimensions parameter to requests. Only hosted
	// text-embedding-3 models accept it; most self-hosted servers reject it.
	sendDimensions bool
}

type clientSettings struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client, *clientSettings)

// WithDimensions sets the expected embedding dimension (must match the vector collection).
func WithDimensions(dim int) ClientOption {
	return func(c *Client, _ *clientSettings) {
		c.dimensions = dim
	}
}

// WithModel sets the embedding model name. Empty keeps the default.
func WithModel(model string) ClientOption {
	return func(c *Client, _ *clientSettings) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at an OpenAI-compatible server.
func WithBaseURL(baseURL string) ClientOption {
	return func(_ *Client, s *clientSettings) {
		s.baseURL = baseURL
	}
}

// WithHTTPClient replaces the retrying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(_ *Client, s *clientSettings) {
		s.httpClient = hc
	}
}

// WithRequestedDimensions sends the dimensions parameter with each request.
func WithRequestedDimensions() ClientOption {
	return func(c *Client, _ *clientSettings) {
		c.sendDimensions = true
	}
}

// NewClient creates an embeddings client. Transport-level retries (5xx, 429,
// connection resets) are handled by go-retryablehttp; the SDK's own retries are disabled.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		model:      defaultModel,
		dimensions: defaultDimension,
	}
	settings := &clientSettings{}

	for _, opt := range opts {
		opt(client, settings)
	}

	if settings.httpClient == nil {
		retryClient := retryablehttp.NewClient()
		retryClient.RetryMax = defaultRetryMax
		retryClient.HTTPClient.Timeout = defaultTimeout
		retryClient.Logger = nil // errors are logged by the caller
		settings.httpClient = retryClient.StandardClient()
	}

	sdkOpts := []option.RequestOption{
		option.WithHTTPClient(settings.httpClient),
		option.WithMaxRetries(0),
	}
	if apiKey != "" {
		sdkOpts = append(sdkOpts, option.WithAPIKey(apiKey))
	} else {
		// Self-hosted servers usually ignore the key, but the SDK requires one.
		sdkOpts = append(sdkOpts, option.WithAPIKey("unused"))
	}

	if settings.baseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(settings.baseURL))
	}

	client.sdk = openaisdk.NewClient(sdkOpts...)

	return client
}

// Dimensions returns the configured embedding dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// CreateEmbedding returns the embedding vector for the given text.
// The returned slice length equals the configured dimensions.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	out, err := c.CreateEmbeddings(ctx, []string{input})
	if err != nil {
		return nil, err
	}

	return out[0], nil
}

// CreateEmbeddings embeds a batch of texts in one request. The result is aligned with
// inputs by the response's index field, not by arrival order.
func (c *Client) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInput
	}

	if c.dimensions <= 0 {
		return nil, ErrInvalidDims
	}

	trimmed := make([]string, len(inputs))
	for i, s := range inputs {
		trimmed[i] = strings.TrimSpace(s)
		if trimmed[i] == "" {
			return nil, fmt.Errorf("%w: index %d", ErrEmptyInput, i)
		}
	}

	params := openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: trimmed,
		},
		Model: openaisdk.EmbeddingModel(c.model),
	}
	if c.sendDimensions {
		params.Dimensions = param.NewOpt(int64(c.dimensions))
	}

	resp, err := c.sdk.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) != len(trimmed) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrNoEmbeddingInResponse, len(resp.Data), len(trimmed))
	}

	out := make([][]float32, len(trimmed))

	for _, d := range resp.Data {
		idx := int(d.Index)
		if idx < 0 || idx >= len(out) {
			return nil, fmt.Errorf("%w: index %d out of range", ErrNoEmbeddingInResponse, idx)
		}

		if len(d.Embedding) != c.dimensions {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(d.Embedding), c.dimensions)
		}

		vec := make([]float32, len(d.Embedding))
		for i := range d.Embedding {
			vec[i] = float32(d.Embedding[i])
		}

		out[idx] = vec
	}

	for i := range out {
		if out[i] == nil {
			return nil, fmt.Errorf("%w: missing index %d", ErrNoEmbeddingInResponse, i)
		}
	}

	return out, nil
}
