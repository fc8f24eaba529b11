// Package dataset builds the labeled evaluation corpus by asking the variant
// synthesizer for noisy spellings of every canonical term.
package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/dictionary"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/observability"
	"github.com/KoSuyeon/SKAI-project/internal/synthesis"
)

// Defaults for synthesizer retries.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// Generator produces VariantRecords for canonical terms.
type Generator struct {
	completer   synthesis.Completer
	maxAttempts int
	retryDelay  time.Duration
	workers     int
	progress    io.Writer
	metrics     observability.PipelineMetrics
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxAttempts sets how many times one (term, kind) request is tried.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the base delay; attempt k waits k*delay before the next try.
func WithRetryDelay(d time.Duration) Option {
	return func(g *Generator) { g.retryDelay = d }
}

// WithWorkers processes up to n terms concurrently. Output order is unchanged.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithProgress renders a per-category progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(g *Generator) { g.progress = w }
}

// WithMetrics records synthesis attempts and generated variant counts.
func WithMetrics(m observability.PipelineMetrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// NewGenerator creates a Generator backed by completer.
func NewGenerator(completer synthesis.Completer, opts ...Option) *Generator {
	g := &Generator{
		completer:   completer,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		workers:     1,
		sleep:       sleepContext,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// GenerateAll runs every dictionary category in processing order and
// concatenates the results.
func (g *Generator) GenerateAll(ctx context.Context, dict *dictionary.Dictionary) ([]models.VariantRecord, error) {
	var all []models.VariantRecord

	for _, c := range dict.Categories() {
		records, err := g.Generate(observability.WithStage(ctx, "generate"), dict.Terms(c), c)
		if err != nil {
			return all, err
		}

		all = append(all, records...)
	}

	return all, nil
}

// Generate produces records for every term of one category. For each term the
// synthesized kinds come first in kind order, followed by one identity record.
// Synthesizer failures never abort the run; only context cancellation does.
func (g *Generator) Generate(ctx context.Context, terms []string, category datatypes.Category) ([]models.VariantRecord, error) {
	bar := g.newBar(len(terms), category)
	defer func() {
		if bar != nil {
			_ = bar.Finish()
		}
	}()

	perTerm := make([][]models.VariantRecord, len(terms))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	for i, term := range terms {
		if egCtx.Err() != nil {
			break
		}

		eg.Go(func() error {
			records, err := g.GenerateTerm(egCtx, term, category)
			if err != nil {
				return err
			}

			perTerm[i] = records

			if bar != nil {
				_ = bar.Add(1)
			}

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return flatten(perTerm), err
	}

	if err := ctx.Err(); err != nil {
		return flatten(perTerm), fmt.Errorf("generate %s: %w", category, err)
	}

	out := flatten(perTerm)

	slog.InfoContext(ctx, "Generated variants", "category", category, "terms", len(terms), "records", len(out))

	return out, nil
}

// GenerateTerm produces the records for a single canonical term.
func (g *Generator) GenerateTerm(ctx context.Context, term string, category datatypes.Category) ([]models.VariantRecord, error) {
	if strings.TrimSpace(term) == "" {
		slog.WarnContext(ctx, "Skipping blank term", "category", category)

		return nil, nil
	}

	var records []models.VariantRecord

	for _, kind := range datatypes.SynthesizedKinds() {
		if err := ctx.Err(); err != nil {
			return records, fmt.Errorf("generate %q: %w", term, err)
		}

		variants, err := g.synthesize(ctx, term, category, kind)
		if err != nil {
			return records, err
		}

		if len(variants) == 0 {
			slog.WarnContext(ctx, "No variants generated", "term", term, "category", category, "type", int(kind))

			continue
		}

		for _, v := range variants {
			records = append(records, models.VariantRecord{
				Input:        v,
				ExpectedName: term,
				Kind:         kind,
				Category:     category,
			})
		}

		if g.metrics != nil {
			g.metrics.RecordVariantsGenerated(ctx, string(category), len(variants))
		}
	}

	records = append(records, models.VariantRecord{
		Input:        term,
		ExpectedName: term,
		Kind:         datatypes.Identity,
		Category:     category,
	})

	return records, nil
}

// synthesize asks for variants of one (term, kind) pair with linear backoff.
// An exhausted retry budget yields no variants and no error.
func (g *Generator) synthesize(
	ctx context.Context, term string, category datatypes.Category, kind datatypes.TransformationKind,
) ([]string, error) {
	prompt, err := BuildPrompt(term, category, kind)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		content, err := g.completer.Complete(ctx, SystemPrompt, prompt)
		if err == nil {
			g.recordAttempt(ctx, category, "success")

			variants := dropIdentity(ParseVariants(content), term)
			if len(variants) == 0 {
				slog.DebugContext(ctx, "Synthesizer answer had no usable variants",
					"term", term, "type", int(kind), "content", content)
			}

			return variants, nil
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("synthesize %q: %w", term, ctx.Err())
		}

		if attempt == g.maxAttempts {
			g.recordAttempt(ctx, category, "exhausted")
			slog.WarnContext(ctx, "Synthesizer retries exhausted",
				"term", term, "category", category, "type", int(kind), "attempts", attempt, "error", err)

			break
		}

		g.recordAttempt(ctx, category, "retry")
		slog.WarnContext(ctx, "Synthesizer call failed, retrying",
			"term", term, "type", int(kind), "attempt", attempt, "max_attempts", g.maxAttempts, "error", err)

		if err := g.sleep(ctx, time.Duration(attempt)*g.retryDelay); err != nil {
			return nil, fmt.Errorf("synthesize %q: %w", term, err)
		}
	}

	return nil, nil
}

func (g *Generator) recordAttempt(ctx context.Context, category datatypes.Category, status string) {
	if g.metrics != nil {
		g.metrics.RecordSynthesisAttempt(ctx, string(category), status)
	}
}

func (g *Generator) newBar(total int, category datatypes.Category) *progressbar.ProgressBar {
	if g.progress == nil || total == 0 {
		return nil
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(g.progress),
		progressbar.OptionSetDescription(string(category)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionClearOnFinish(),
	)
}

func flatten(parts [][]models.VariantRecord) []models.VariantRecord {
	n := 0
	for _, p := range parts {
		n += len(p)
	}

	out := make([]models.VariantRecord, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
