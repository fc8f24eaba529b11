// Package embeddings defines the embedding provider contract used by the index
// builder and the query engine, plus a deterministic offline implementation.
package embeddings

import "context"

// Client defines the interface for generating text embeddings.
// Implemented by internal/openai, internal/googleai and MockClient.
type Client interface {
	// CreateEmbedding generates an embedding vector for the given text.
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)

	// CreateEmbeddings generates embedding vectors for multiple texts in a batch.
	// The result is aligned with texts.
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}
