// Package search resolves free-text input to canonical terms with a
// category-filtered nearest-neighbour query over the term index.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/embeddings"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/observability"
	"github.com/KoSuyeon/SKAI-project/internal/vectorstore"
	"github.com/KoSuyeon/SKAI-project/pkg/cache"
)

const (
	queryEmbeddingCacheName = "query_embedding"
	minLimit                = 2
)

// EngineParams configures an Engine. QueryCache and the metrics may be nil.
type EngineParams struct {
	Embedder      embeddings.Client
	Store         vectorstore.Store
	Collection    string
	Limit         int
	Templates     Templates
	QueryCache    *cache.LoaderCache[string, []float32]
	CacheMetrics  observability.CacheMetrics
	SearchMetrics observability.SearchMetrics
	Logger        *slog.Logger
}

// Engine answers normalization queries.
type Engine struct {
	embedder      embeddings.Client
	store         vectorstore.Store
	collection    string
	limit         int
	templates     Templates
	queryCache    *cache.LoaderCache[string, []float32]
	cacheMetrics  observability.CacheMetrics
	searchMetrics observability.SearchMetrics
	logger        *slog.Logger
}

// NewEngine creates an Engine. Limit is raised to 2 when smaller; nil
// Templates means DefaultTemplates.
func NewEngine(p EngineParams) *Engine {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	templates := p.Templates
	if templates == nil {
		templates = DefaultTemplates()
	}

	return &Engine{
		embedder:      p.Embedder,
		store:         p.Store,
		collection:    p.Collection,
		limit:         max(p.Limit, minLimit),
		templates:     templates,
		queryCache:    p.QueryCache,
		cacheMetrics:  p.CacheMetrics,
		searchMetrics: p.SearchMetrics,
		logger:        logger,
	}
}

// QueryText returns the text that is embedded for input in category.
func (e *Engine) QueryText(input string, category datatypes.Category) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	return e.templates.Apply(category, input)
}

// Query returns the two best candidates for input within category. Blank input,
// an unknown category, or a category without points yields an empty Match.
func (e *Engine) Query(ctx context.Context, input string, category datatypes.Category) (models.Match, error) {
	hits, err := e.Search(ctx, input, category, e.limit)
	if err != nil {
		return models.Match{}, err
	}

	var m models.Match

	if len(hits) > 0 {
		m.Top1 = hits[0].Candidate()
	}

	if len(hits) > 1 {
		m.Top2 = hits[1].Candidate()
	}

	return m, nil
}

// Search returns up to limit ranked hits for input within category.
func (e *Engine) Search(ctx context.Context, input string, category datatypes.Category, limit int) ([]vectorstore.Hit, error) {
	text := e.QueryText(input, category)
	if text == "" || !category.Valid() {
		return nil, nil
	}

	start := time.Now()

	vec, err := e.embed(ctx, text)
	if err != nil {
		e.record(ctx, category, "error", start)
		e.logger.ErrorContext(ctx, "normalize: create embedding failed", "category", category, "error", err)

		return nil, fmt.Errorf("create embedding: %w", err)
	}

	hits, err := e.store.Search(ctx, e.collection, vec, category, limit)
	if err != nil {
		e.record(ctx, category, "error", start)
		e.logger.ErrorContext(ctx, "normalize: vector search failed", "category", category, "collection", e.collection, "error", err)

		return nil, fmt.Errorf("search %s: %w", e.collection, err)
	}

	outcome := "hit"
	if len(hits) == 0 {
		outcome = "empty"
	}

	e.record(ctx, category, outcome, start)

	return hits, nil
}

func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	if e.queryCache == nil {
		return e.embedder.CreateEmbedding(ctx, text)
	}

	vec, hit, err := e.queryCache.GetWithStats(ctx, text, e.embedder.CreateEmbedding)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	if e.cacheMetrics != nil {
		if hit {
			e.cacheMetrics.RecordHit(ctx, queryEmbeddingCacheName)
		} else {
			e.cacheMetrics.RecordMiss(ctx, queryEmbeddingCacheName)
		}
	}

	return vec, nil
}

func (e *Engine) record(ctx context.Context, category datatypes.Category, outcome string, start time.Time) {
	if e.searchMetrics != nil {
		e.searchMetrics.RecordSearch(ctx, string(category), outcome, time.Since(start))
	}
}
