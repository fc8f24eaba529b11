package embeddings

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	vecutil "github.com/KoSuyeon/SKAI-project/pkg/embeddings"
)

// ErrEmptyText is returned by MockClient for blank input.
var ErrEmptyText = errors.New("embeddings: text cannot be empty")

const defaultMockDimensions = 768

// MockClient implements Client without a network call. Each text is hashed into a
// bag of character unigrams and bigrams (feature hashing) and L2-normalized, so
// identical texts embed identically and texts sharing characters score closer.
type MockClient struct {
	dimensions int
}

// NewMockClient creates a mock client with the default 768 dimensions.
func NewMockClient() *MockClient {
	return &MockClient{dimensions: defaultMockDimensions}
}

// NewMockClientWithDimensions creates a mock client with custom dimensions.
func NewMockClientWithDimensions(dimensions int) *MockClient {
	return &MockClient{dimensions: dimensions}
}

// CreateEmbedding embeds the trimmed text.
func (c *MockClient) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	return c.embed(text), nil
}

// CreateEmbeddings embeds every text. Returns an error if any text is blank.
func (c *MockClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyText
	}

	out := make([][]float32, len(texts))

	for i, text := range texts {
		vec, err := c.CreateEmbedding(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text at index %d: %w", i, err)
		}

		out[i] = vec
	}

	return out, nil
}

func (c *MockClient) embed(text string) []float32 {
	vec := make([]float32, c.dimensions)
	runes := []rune(text)

	add := func(feature string, weight float32) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(feature))
		sum := h.Sum64()

		idx := int(sum % uint64(c.dimensions))
		if sum&(1<<63) != 0 {
			weight = -weight
		}

		vec[idx] += weight
	}

	for i, r := range runes {
		add("u:"+string(r), 1)

		if i+1 < len(runes) {
			add("b:"+string(runes[i:i+2]), 2)
		}
	}

	vecutil.NormalizeL2(vec)

	return vec
}

var _ Client = (*MockClient)(nil)
