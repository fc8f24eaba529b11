// Package evaluation replays the labeled corpus through the query engine and
// aggregates per-category accuracy and latency.
package evaluation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/observability"
	"github.com/KoSuyeon/SKAI-project/internal/search"
)

// Querier is the part of the query engine the evaluator needs.
type Querier interface {
	Query(ctx context.Context, input string, category datatypes.Category) (models.Match, error)
	QueryText(input string, category datatypes.Category) string
}

// Evaluator classifies query results against expected terms.
type Evaluator struct {
	querier   Querier
	threshold float64
	workers   int
	progress  io.Writer
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithThreshold sets the top-1/top-2 score gap threshold.
func WithThreshold(th float64) Option {
	return func(e *Evaluator) { e.threshold = th }
}

// WithWorkers replays up to n records concurrently. Result order is unchanged.
func WithWorkers(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithProgress renders a progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(e *Evaluator) { e.progress = w }
}

// NewEvaluator creates an Evaluator over q.
func NewEvaluator(q Querier, opts ...Option) *Evaluator {
	e := &Evaluator{
		querier:   q,
		threshold: search.DefaultScoreGapThreshold,
		workers:   1,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run queries every record and returns results in corpus order. A failed query
// is logged and recorded as incorrect with no candidates; only context
// cancellation aborts the run.
func (e *Evaluator) Run(ctx context.Context, corpus []models.VariantRecord) ([]models.QueryResult, error) {
	ctx = observability.WithStage(ctx, "evaluate")
	results := make([]models.QueryResult, len(corpus))

	var bar *progressbar.ProgressBar
	if e.progress != nil && len(corpus) > 0 {
		bar = progressbar.NewOptions(len(corpus),
			progressbar.OptionSetWriter(e.progress),
			progressbar.OptionSetDescription("evaluate"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Finish() }()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)

	for i, rec := range corpus {
		if egCtx.Err() != nil {
			break
		}

		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			results[i] = e.evaluate(egCtx, rec)

			if bar != nil {
				_ = bar.Add(1)
			}

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	return results, nil
}

func (e *Evaluator) evaluate(ctx context.Context, rec models.VariantRecord) models.QueryResult {
	res := models.QueryResult{
		Category:  rec.Category,
		Input:     rec.Input,
		QueryText: e.querier.QueryText(rec.Input, rec.Category),
		TrueName:  rec.ExpectedName,
	}

	start := time.Now()
	m, err := e.querier.Query(ctx, rec.Input, rec.Category)
	res.Elapsed = time.Since(start)

	if err != nil {
		if ctx.Err() == nil {
			slog.WarnContext(ctx, "Query failed, recording as incorrect",
				"category", rec.Category, "input", rec.Input, "error", err)
		}

		return res
	}

	res.Top1 = m.Top1
	res.Top2 = m.Top2
	res.CorrectTop1, res.CorrectTop2 = search.Classify(m, rec.ExpectedName, e.threshold)

	slog.DebugContext(ctx, "Evaluated record",
		"category", rec.Category, "input", rec.Input, "correct_top1", res.CorrectTop1, "elapsed", res.Elapsed)

	return res
}
