package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KoSuyeon/SKAI-project/internal/config"
	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/dictionary"
	"github.com/KoSuyeon/SKAI-project/internal/embeddings"
	"github.com/KoSuyeon/SKAI-project/internal/indexer"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
	"github.com/KoSuyeon/SKAI-project/internal/observability"
	"github.com/KoSuyeon/SKAI-project/internal/search"
	"github.com/KoSuyeon/SKAI-project/internal/vectorstore"
	"github.com/KoSuyeon/SKAI-project/pkg/cache"
	"github.com/KoSuyeon/SKAI-project/pkg/database"
)

const (
	defaultDictionaryPath = "data/dictionary_data.xlsx"
	metricsShutdownWait   = 5 * time.Second
)

// telemetry bundles the meter provider with the collectors built from it.
type telemetry struct {
	otel    *observability.Telemetry
	handler http.Handler
	metrics *observability.Metrics
	server  *http.Server
}

// setupTelemetry creates the Prometheus-backed meter provider when enabled. Batch
// commands enable it only when METRICS_ADDR is set; serve always does.
func setupTelemetry(ctx context.Context, cfg *config.Config, enabled bool) (*telemetry, error) {
	if !enabled {
		return &telemetry{metrics: &observability.Metrics{}}, nil
	}

	otel, err := observability.NewTelemetry(observability.TelemetryConfig{ServiceVersion: version})
	if err != nil {
		return nil, fmt.Errorf("create meter provider: %w", err)
	}

	metrics, err := observability.NewMetrics(otel.Meter)
	if err != nil {
		_ = otel.Shutdown(ctx)

		return nil, fmt.Errorf("create metrics: %w", err)
	}

	handler := otel.Handler
	t := &telemetry{otel: otel, handler: handler, metrics: metrics}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", handler)

		t.server = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			slog.Info("Serving metrics", "addr", cfg.MetricsAddr)

			if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	return t, nil
}

// Close stops the metrics server and flushes the meter provider.
func (t *telemetry) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownWait)
	defer cancel()

	if t.server != nil {
		if err := t.server.Shutdown(ctx); err != nil {
			slog.Warn("Metrics server shutdown failed", "error", err)
		}
	}

	if t.otel != nil {
		if err := t.otel.Shutdown(ctx); err != nil {
			slog.Warn("Meter provider shutdown failed", "error", err)
		}
	}
}

// loadDictionary reads the workbook, restricted to the given categories when set.
func loadDictionary(path string, categoryNames []string) (*dictionary.Dictionary, error) {
	if err := requireFlag("dictionary", path); err != nil {
		return nil, err
	}

	categories, err := datatypes.ParseCategories(categoryNames)
	if err != nil {
		return nil, fmt.Errorf("parse --category: %w", err)
	}

	return dictionary.LoadWorkbook(path, categories...)
}

// openIndex opens the embedding client and vector store configured for this run.
func openIndex(ctx context.Context, cfg *config.Config) (embeddings.Client, vectorstore.Store, error) {
	if err := cfg.RequireEmbedding(); err != nil {
		return nil, nil, err
	}

	emb, err := embeddings.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create embedding client: %w", err)
	}

	store, err := vectorstore.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open vector store: %w", err)
	}

	slog.Info("Index backend ready",
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_model", cfg.EmbeddingModel,
		"vector_store", cfg.VectorStore,
		"collection", cfg.CollectionName,
	)

	return emb, store, nil
}

func newBuilder(cfg *config.Config, emb embeddings.Client, store vectorstore.Store, m *observability.Metrics) *indexer.Builder {
	return indexer.NewBuilder(indexer.BuilderParams{
		Embedder:   emb,
		Store:      store,
		Collection: cfg.CollectionName,
		Dimensions: cfg.EmbeddingDimensions,
		BatchSize:  cfg.EmbeddingBatchSize,
		Metrics:    m.Pipeline,
	})
}

// newEngine builds the query engine with the configured templates and query cache.
func newEngine(cfg *config.Config, emb embeddings.Client, store vectorstore.Store, m *observability.Metrics) (*search.Engine, error) {
	var templates search.Templates

	if cfg.QueryTemplatesFile != "" {
		t, err := search.LoadTemplates(cfg.QueryTemplatesFile)
		if err != nil {
			return nil, err
		}

		templates = t
	}

	var queryCache *cache.LoaderCache[string, []float32]

	if cfg.QueryCacheSize > 0 {
		c, err := cache.NewLoaderCache[string, []float32](cfg.QueryCacheSize, func(s string) string { return s },
			cache.WithTTL(cfg.QueryCacheTTL))
		if err != nil {
			return nil, fmt.Errorf("create query cache: %w", err)
		}

		queryCache = c
	}

	return search.NewEngine(search.EngineParams{
		Embedder:      emb,
		Store:         store,
		Collection:    cfg.CollectionName,
		Limit:         cfg.SearchLimit,
		Templates:     templates,
		QueryCache:    queryCache,
		CacheMetrics:  m.Cache,
		SearchMetrics: m.Search,
	}), nil
}

// ensureIndexed fails with a not-found error when the collection is missing or empty.
// It backs the readiness probe.
func ensureIndexed(ctx context.Context, store vectorstore.Store, collection string) error {
	n, err := store.Count(ctx, collection, "")
	if err != nil {
		return fmt.Errorf("check collection %s: %w", collection, err)
	}

	if n == 0 {
		return normerrors.NewNotFoundError("collection",
			fmt.Sprintf("collection %s is empty; run `termnorm index` first", collection))
	}

	return nil
}

// checkCollection fails only when the collection does not exist. An empty
// collection is logged and allowed: every query then scores as a miss.
func checkCollection(ctx context.Context, store vectorstore.Store, collection string) error {
	n, err := store.Count(ctx, collection, "")
	if err != nil {
		if errors.Is(err, normerrors.ErrNotFound) {
			return normerrors.NewNotFoundError("collection",
				fmt.Sprintf("collection %s does not exist; run `termnorm index` or pass --dictionary", collection)).WithCause(err)
		}

		return fmt.Errorf("check collection %s: %w", collection, err)
	}

	if n == 0 {
		slog.WarnContext(ctx, "Collection is empty; no query will match", "collection", collection)
	}

	return nil
}

// openQueuePool returns the Postgres pool River runs on. A pgvector store shares
// its pool; other stores get a dedicated one that the caller closes.
func openQueuePool(ctx context.Context, cfg *config.Config, store vectorstore.Store) (pool *pgxpool.Pool, owned bool, err error) {
	if pg, ok := store.(*vectorstore.PgvectorStore); ok {
		return pg.Pool(), false, nil
	}

	pool, err = database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, false, fmt.Errorf("open queue database: %w", err)
	}

	return pool, true, nil
}
