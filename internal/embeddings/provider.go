package embeddings

import (
	"context"
	"fmt"

	"github.com/KoSuyeon/SKAI-project/internal/config"
	"github.com/KoSuyeon/SKAI-project/internal/googleai"
	"github.com/KoSuyeon/SKAI-project/internal/openai"
)

// NewFromConfig builds the Client selected by EMBEDDING_PROVIDER. Credentials are
// checked here so commands that never embed can run without them.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Client, error) {
	if err := cfg.RequireEmbedding(); err != nil {
		return nil, err
	}

	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderMock:
		return NewMockClientWithDimensions(cfg.EmbeddingDimensions), nil
	case config.EmbeddingProviderGoogle:
		client, err := googleai.NewClient(ctx, cfg.EmbeddingAPIKey,
			googleai.WithDimensions(cfg.EmbeddingDimensions),
			googleai.WithModel(cfg.EmbeddingModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	default:
		opts := []openai.ClientOption{
			openai.WithDimensions(cfg.EmbeddingDimensions),
			openai.WithModel(cfg.EmbeddingModel),
		}
		if cfg.EmbeddingBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.EmbeddingBaseURL))
		} else {
			opts = append(opts, openai.WithRequestedDimensions())
		}

		return openai.NewClient(cfg.EmbeddingAPIKey, opts...), nil
	}
}
