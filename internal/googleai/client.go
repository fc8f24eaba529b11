// Package googleai embeds terms with the Gemini embeddings API through the Google Gen AI SDK.
package googleai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/genai"

	vecutil "github.com/KoSuyeon/SKAI-project/pkg/embeddings"
)

var (
	ErrEmptyInput        = errors.New("googleai: input text is empty")
	ErrInvalidDims       = errors.New("googleai: embedding dimensions must be positive")
	ErrShortResponse     = errors.New("googleai: fewer embeddings than inputs")
	ErrDimensionMismatch = errors.New("googleai: embedding dimension mismatch")
)

const (
	DefaultModel = "gemini-embedding-001"

	// TaskSemanticSimilarity suits matching short field terms against dictionary entries.
	TaskSemanticSimilarity = "SEMANTIC_SIMILARITY"

	defaultDimensions = 768

	// maxBatch is the API cap on contents per EmbedContent call.
	maxBatch = 100
)

// contentEmbedder is the part of *genai.Models the client calls.
type contentEmbedder interface {
	EmbedContent(
		ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig,
	) (*genai.EmbedContentResponse, error)
}

// Client produces L2-normalized Gemini embeddings of a fixed dimension.
type Client struct {
	models     contentEmbedder
	model      string
	taskType   string
	dimensions int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets the output dimensionality; it must match the vector collection.
func WithDimensions(dim int) ClientOption {
	return func(c *Client) { c.dimensions = dim }
}

// WithModel overrides DefaultModel. Empty is ignored.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTaskType overrides TaskSemanticSimilarity, e.g. with RETRIEVAL_QUERY.
func WithTaskType(task string) ClientOption {
	return func(c *Client) { c.taskType = task }
}

// NewClient creates a client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}

	return newClient(gc.Models, opts...), nil
}

func newClient(models contentEmbedder, opts ...ClientOption) *Client {
	c := &Client{
		models:     models,
		model:      DefaultModel,
		taskType:   TaskSemanticSimilarity,
		dimensions: defaultDimensions,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CreateEmbedding embeds one text.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	out, err := c.CreateEmbeddings(ctx, []string{input})
	if err != nil {
		return nil, err
	}

	return out[0], nil
}

// CreateEmbeddings embeds texts in order, splitting them into API-sized batches.
// Gemini vectors truncated below their native size are not unit length, so
// every vector is L2-normalized before it is returned.
func (c *Client) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyInput
	}

	if c.dimensions <= 0 || c.dimensions > math.MaxInt32 {
		return nil, ErrInvalidDims
	}

	contents := make([]*genai.Content, len(inputs))

	for i, s := range inputs {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, fmt.Errorf("%w: index %d", ErrEmptyInput, i)
		}

		contents[i] = genai.NewContentFromText(s, genai.RoleUser)
	}

	//nolint:gosec // G115: bounded by math.MaxInt32 above
	dims := int32(c.dimensions)
	cfg := &genai.EmbedContentConfig{TaskType: c.taskType, OutputDimensionality: &dims}

	out := make([][]float32, 0, len(inputs))

	for start := 0; start < len(contents); start += maxBatch {
		batch := contents[start:min(start+maxBatch, len(contents))]

		resp, err := c.models.EmbedContent(ctx, c.model, batch, cfg)
		if err != nil {
			return nil, fmt.Errorf("gemini embedding (%d texts): %w", len(batch), err)
		}

		vecs, err := c.vectors(resp, len(batch))
		if err != nil {
			return nil, err
		}

		out = append(out, vecs...)
	}

	return out, nil
}

func (c *Client) vectors(resp *genai.EmbedContentResponse, want int) ([][]float32, error) {
	if resp == nil || len(resp.Embeddings) < want {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}

		return nil, fmt.Errorf("%w: got %d, want %d", ErrShortResponse, got, want)
	}

	out := make([][]float32, want)

	for i, e := range resp.Embeddings[:want] {
		if e == nil || len(e.Values) != c.dimensions {
			got := 0
			if e != nil {
				got = len(e.Values)
			}

			return nil, fmt.Errorf("%w: embedding %d has %d values, want %d", ErrDimensionMismatch, i, got, c.dimensions)
		}

		vec := append([]float32(nil), e.Values...)
		vecutil.NormalizeL2(vec)
		out[i] = vec
	}

	return out, nil
}
