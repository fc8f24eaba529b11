package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KoSuyeon/SKAI-project/internal/config"
	vecutil "github.com/KoSuyeon/SKAI-project/pkg/embeddings"
)

func TestMockClient_Deterministic(t *testing.T) {
	c := NewMockClientWithDimensions(64)
	ctx := context.Background()

	a, err := c.CreateEmbedding(ctx, "PUMP-01")
	require.NoError(t, err)

	b, err := c.CreateEmbedding(ctx, "PUMP-01 ")
	require.NoError(t, err)

	assert.Equal(t, a, b, "surrounding whitespace must not change the embedding")
	assert.InDelta(t, 1.0, vecutil.Cosine(a, b), 1e-6)
	assert.Len(t, a, 64)
}

func TestMockClient_SimilarTextsScoreHigher(t *testing.T) {
	c := NewMockClient()
	ctx := context.Background()

	vecs, err := c.CreateEmbeddings(ctx, []string{"CENTRIFUGAL PUMP", "centrifugal pump", "CENTRIFUGAL PUMPS", "보일러"})
	require.NoError(t, err)
	require.Len(t, vecs, 4)

	near := vecutil.Cosine(vecs[0], vecs[2])
	far := vecutil.Cosine(vecs[0], vecs[3])
	assert.Greater(t, near, far)
	assert.Less(t, vecutil.Cosine(vecs[0], vecs[1]), 1.0, "case is significant")
}

func TestMockClient_EmptyInput(t *testing.T) {
	c := NewMockClient()

	_, err := c.CreateEmbedding(context.Background(), "  ")
	require.ErrorIs(t, err, ErrEmptyText)

	_, err = c.CreateEmbeddings(context.Background(), []string{"ok", ""})
	require.ErrorIs(t, err, ErrEmptyText)

	_, err = c.CreateEmbeddings(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	client, err := NewFromConfig(ctx, &config.Config{EmbeddingProvider: config.EmbeddingProviderMock, EmbeddingDimensions: 16})
	require.NoError(t, err)

	vec, err := client.CreateEmbedding(ctx, "location")
	require.NoError(t, err)
	assert.Len(t, vec, 16)

	_, err = NewFromConfig(ctx, &config.Config{EmbeddingProvider: config.EmbeddingProviderOpenAI})
	require.Error(t, err)

	client, err = NewFromConfig(ctx, &config.Config{
		EmbeddingProvider:   config.EmbeddingProviderOpenAI,
		EmbeddingBaseURL:    "http://localhost:8000/v1",
		EmbeddingDimensions: 768,
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}
