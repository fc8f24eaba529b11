package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/riverqueue/river"
	"golang.org/x/time/rate"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/indexer"
	"github.com/KoSuyeon/SKAI-project/internal/observability"
)

// TermIndexer writes a single term into the index.
type TermIndexer interface {
	IndexTerm(ctx context.Context, category datatypes.Category, term string) error
}

// IndexWorkerDeps holds the dependencies for the index worker.
type IndexWorkerDeps struct {
	// Indexers maps a collection name to the builder writing into it.
	Indexers    map[string]TermIndexer
	RateLimiter *rate.Limiter
	Metrics     observability.PipelineMetrics
}

// IndexTermWorker processes index_term jobs.
type IndexTermWorker struct {
	river.WorkerDefaults[IndexTermArgs]
	deps IndexWorkerDeps
}

// NewIndexTermWorker creates a new index worker with the given dependencies.
func NewIndexTermWorker(deps IndexWorkerDeps) *IndexTermWorker {
	return &IndexTermWorker{deps: deps}
}

// Work embeds and upserts one term. Jobs that can never succeed (unknown
// collection or category, degenerate vector) complete without retry.
func (w *IndexTermWorker) Work(ctx context.Context, job *river.Job[IndexTermArgs]) error {
	args := job.Args

	slog.DebugContext(ctx, "processing index job",
		"job_id", job.ID,
		"collection", args.Collection,
		"category", args.Category,
		"value", args.Value,
	)

	idx, ok := w.deps.Indexers[args.Collection]
	if !ok || !args.Category.Valid() {
		slog.ErrorContext(ctx, "invalid index job arguments",
			"job_id", job.ID,
			"collection", args.Collection,
			"category", args.Category,
		)
		w.recordError(ctx, "invalid_args")

		return nil
	}

	if w.deps.RateLimiter != nil {
		if err := w.deps.RateLimiter.Wait(ctx); err != nil {
			return err
		}
	}

	if err := idx.IndexTerm(ctx, args.Category, args.Value); err != nil {
		if errors.Is(err, indexer.ErrDegenerateVector) {
			slog.WarnContext(ctx, "degenerate embedding, term not indexed",
				"job_id", job.ID,
				"category", args.Category,
				"value", args.Value,
			)
			w.recordError(ctx, "embedding_failed")

			return nil
		}

		slog.ErrorContext(ctx, "failed to index term",
			"job_id", job.ID,
			"category", args.Category,
			"value", args.Value,
			"error", err,
		)
		w.recordError(ctx, "upsert_failed")

		// River retries based on configuration.
		return err
	}

	slog.InfoContext(ctx, "term indexed",
		"job_id", job.ID,
		"category", args.Category,
		"value", args.Value,
	)

	return nil
}

func (w *IndexTermWorker) recordError(ctx context.Context, reason string) {
	if w.deps.Metrics != nil {
		w.deps.Metrics.RecordWorkerError(ctx, reason)
	}
}
