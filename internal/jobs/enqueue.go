package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KoSuyeon/SKAI-project/internal/dictionary"
	"github.com/KoSuyeon/SKAI-project/internal/observability"
)

// enqueueBatchSize bounds the rows sent per InsertMany call.
const enqueueBatchSize = 500

// EnqueueStats holds statistics from an enqueue run.
type EnqueueStats struct {
	Enqueued   int
	Duplicates int
	Errors     int
}

// EnqueueAll enqueues one index job per dictionary term, category by category.
// A failed batch is logged and its terms counted as errors; only context
// cancellation stops the run.
func EnqueueAll(
	ctx context.Context, dict *dictionary.Dictionary, collection string, inserter JobInserter, metrics observability.PipelineMetrics,
) (*EnqueueStats, error) {
	stats := &EnqueueStats{}

	for _, c := range dict.Categories() {
		terms := dict.Terms(c)

		for start := 0; start < len(terms); start += enqueueBatchSize {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("enqueue: %w", err)
			}

			end := min(start+enqueueBatchSize, len(terms))

			batch := make([]IndexTermArgs, 0, end-start)
			for _, term := range terms[start:end] {
				batch = append(batch, IndexTermArgs{Collection: collection, Category: c, Value: term})
			}

			res, err := inserter.InsertIndexTermJobs(ctx, batch)
			if err != nil {
				slog.ErrorContext(ctx, "failed to enqueue index jobs", "category", c, "batch_size", len(batch), "error", err)
				stats.Errors += len(batch)

				continue
			}

			stats.Enqueued += res.Inserted
			stats.Duplicates += res.Duplicates
		}
	}

	if metrics != nil {
		metrics.RecordJobsEnqueued(ctx, int64(stats.Enqueued))
	}

	slog.InfoContext(ctx, "Index jobs enqueued",
		"collection", collection, "enqueued", stats.Enqueued, "duplicates", stats.Duplicates, "errors", stats.Errors)

	return stats, nil
}
