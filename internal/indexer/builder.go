// Package indexer embeds canonical terms and writes them into the
// category-partitioned vector index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/dictionary"
	"github.com/KoSuyeon/SKAI-project/internal/embeddings"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/observability"
	"github.com/KoSuyeon/SKAI-project/internal/vectorstore"
	vecutil "github.com/KoSuyeon/SKAI-project/pkg/embeddings"
)

const defaultBatchSize = 64

// ErrDegenerateVector is returned by IndexTerm when the provider returns an unusable vector.
var ErrDegenerateVector = errors.New("degenerate embedding vector")

// Handle describes a built index.
type Handle struct {
	Collection string
	Indexed    map[datatypes.Category]int
	Skipped    map[datatypes.Category]int
}

// Total returns the number of points written by the build.
func (h *Handle) Total() int {
	n := 0
	for _, c := range h.Indexed {
		n += c
	}

	return n
}

// BuilderParams configures a Builder. Metrics may be nil.
type BuilderParams struct {
	Embedder   embeddings.Client
	Store      vectorstore.Store
	Collection string
	Dimensions int
	BatchSize  int
	Metrics    observability.PipelineMetrics
}

// Builder writes one point per (category, canonical term).
type Builder struct {
	embedder   embeddings.Client
	store      vectorstore.Store
	collection string
	dim        int
	batchSize  int
	metrics    observability.PipelineMetrics
}

// NewBuilder creates a Builder.
func NewBuilder(p BuilderParams) *Builder {
	batch := p.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	return &Builder{
		embedder:   p.Embedder,
		store:      p.Store,
		collection: p.Collection,
		dim:        p.Dimensions,
		batchSize:  batch,
		metrics:    p.Metrics,
	}
}

// EnsureCollection creates the target collection when missing.
func (b *Builder) EnsureCollection(ctx context.Context) error {
	if err := b.store.EnsureCollection(ctx, b.collection, b.dim); err != nil {
		return fmt.Errorf("ensure collection %s: %w", b.collection, err)
	}

	return nil
}

// Build indexes every category of termsByCategory. Terms are trimmed and NFKC
// folded; blanks, duplicates and degenerate vectors are skipped. Re-running
// Build replaces existing points in place. A failure leaves points written by
// earlier batches in the index.
func (b *Builder) Build(ctx context.Context, termsByCategory map[datatypes.Category][]string) (*Handle, error) {
	ctx = observability.WithStage(ctx, "index")

	if err := b.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	h := &Handle{
		Collection: b.collection,
		Indexed:    make(map[datatypes.Category]int),
		Skipped:    make(map[datatypes.Category]int),
	}

	for _, c := range datatypes.AllCategories() {
		terms, ok := termsByCategory[c]
		if !ok {
			continue
		}

		if err := b.buildCategory(ctx, c, terms, h); err != nil {
			return h, err
		}

		slog.InfoContext(ctx, "Indexed category",
			"collection", b.collection, "category", c, "indexed", h.Indexed[c], "skipped", h.Skipped[c])
	}

	return h, nil
}

func (b *Builder) buildCategory(ctx context.Context, c datatypes.Category, terms []string, h *Handle) error {
	values := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))

	for _, t := range terms {
		v := dictionary.NormalizeTerm(t)

		switch {
		case v == "":
			b.skip(ctx, c, "blank", h)
		case seen[v]:
			b.skip(ctx, c, "duplicate", h)
		default:
			seen[v] = true
			values = append(values, v)
		}
	}

	for start := 0; start < len(values); start += b.batchSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("index %s: %w", c, err)
		}

		end := min(start+b.batchSize, len(values))
		batch := values[start:end]

		vectors, err := b.embedder.CreateEmbeddings(ctx, batch)
		if err != nil {
			return fmt.Errorf("embed %s batch at %d: %w", c, start, err)
		}

		if len(vectors) != len(batch) {
			return fmt.Errorf("embed %s batch at %d: got %d vectors for %d terms", c, start, len(vectors), len(batch))
		}

		points := make([]models.IndexedPoint, 0, len(batch))

		for i, v := range batch {
			if vecutil.IsDegenerate(vectors[i], b.dim) {
				slog.WarnContext(ctx, "Skipping degenerate embedding", "category", c, "value", v, "length", len(vectors[i]))
				b.skip(ctx, c, "degenerate", h)

				continue
			}

			points = append(points, models.NewIndexedPoint(c, v, vectors[i]))
		}

		if len(points) == 0 {
			continue
		}

		if err := b.store.Upsert(ctx, b.collection, points); err != nil {
			return fmt.Errorf("upsert %s batch at %d: %w", c, start, err)
		}

		h.Indexed[c] += len(points)

		if b.metrics != nil {
			b.metrics.RecordPointsIndexed(ctx, string(c), len(points))
		}
	}

	return nil
}

// IndexTerm embeds and upserts a single term. It is the unit of work of the
// asynchronous index job.
func (b *Builder) IndexTerm(ctx context.Context, c datatypes.Category, term string) error {
	v := dictionary.NormalizeTerm(term)
	if v == "" {
		return fmt.Errorf("index %s: blank term", c)
	}

	vec, err := b.embedder.CreateEmbedding(ctx, v)
	if err != nil {
		return fmt.Errorf("embed %q: %w", v, err)
	}

	if vecutil.IsDegenerate(vec, b.dim) {
		return fmt.Errorf("embed %q: %w", v, ErrDegenerateVector)
	}

	if err := b.store.Upsert(ctx, b.collection, []models.IndexedPoint{models.NewIndexedPoint(c, v, vec)}); err != nil {
		return fmt.Errorf("upsert %q: %w", v, err)
	}

	if b.metrics != nil {
		b.metrics.RecordPointsIndexed(ctx, string(c), 1)
	}

	return nil
}

func (b *Builder) skip(ctx context.Context, c datatypes.Category, reason string, h *Handle) {
	h.Skipped[c]++

	if b.metrics != nil {
		b.metrics.RecordPointSkipped(ctx, string(c), reason)
	}
}
