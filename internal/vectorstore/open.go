package vectorstore

import (
	"context"
	"fmt"

	"github.com/KoSuyeon/SKAI-project/internal/config"
	"github.com/KoSuyeon/SKAI-project/pkg/database"
)

// Open builds the Store selected by VECTOR_STORE. The returned store owns its
// connection; callers Close it when the run ends.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.VectorStore {
	case config.VectorStoreMemory:
		return NewMemoryStore(), nil
	case config.VectorStoreSQLite:
		db, err := database.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}

		store, err := NewSQLiteStore(ctx, db)
		if err != nil {
			_ = db.Close()

			return nil, err
		}

		return store, nil
	default:
		if err := database.EnsureVectorExtension(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}

		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithVectorTypes())
		if err != nil {
			return nil, fmt.Errorf("open pgvector store: %w", err)
		}

		return NewPgvectorStore(pool), nil
	}
}
