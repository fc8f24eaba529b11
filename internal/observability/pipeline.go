package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics records batch pipeline metrics (synthesis, indexing, index jobs).
type PipelineMetrics interface {
	RecordSynthesisAttempt(ctx context.Context, category, status string)
	RecordVariantsGenerated(ctx context.Context, category string, count int)
	RecordPointsIndexed(ctx context.Context, category string, count int)
	RecordPointSkipped(ctx context.Context, category, reason string)
	RecordJobsEnqueued(ctx context.Context, count int64)
	RecordWorkerError(ctx context.Context, reason string)
}

type pipelineMetrics struct {
	synthesisAttempts metric.Int64Counter
	variants          metric.Int64Counter
	indexed           metric.Int64Counter
	skipped           metric.Int64Counter
	jobsEnqueued      metric.Int64Counter
	workerErrors      metric.Int64Counter
}

// NewPipelineMetrics creates PipelineMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewPipelineMetrics(meter metric.Meter) (PipelineMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	synthesisAttempts, err := meter.Int64Counter(
		MetricNameSynthesisAttempts,
		metric.WithDescription("Variant synthesis calls by status (success, retry, exhausted)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create synthesis attempts counter: %w", err)
	}

	variants, err := meter.Int64Counter(
		MetricNameVariantsGenerated,
		metric.WithDescription("Variant records produced per category"),
	)
	if err != nil {
		return nil, fmt.Errorf("create variants counter: %w", err)
	}

	indexed, err := meter.Int64Counter(
		MetricNamePointsIndexed,
		metric.WithDescription("Canonical terms upserted into the term index"),
	)
	if err != nil {
		return nil, fmt.Errorf("create points indexed counter: %w", err)
	}

	skipped, err := meter.Int64Counter(
		MetricNamePointsSkipped,
		metric.WithDescription("Canonical terms skipped during indexing by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("create points skipped counter: %w", err)
	}

	jobsEnqueued, err := meter.Int64Counter(
		MetricNameIndexJobsEnqueued,
		metric.WithDescription("Total index_term jobs enqueued"),
	)
	if err != nil {
		return nil, fmt.Errorf("create index jobs enqueued counter: %w", err)
	}

	workerErrors, err := meter.Int64Counter(
		MetricNameIndexWorkerErrors,
		metric.WithDescription("Total index worker errors (embedding, upsert, invalid args)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create index worker errors counter: %w", err)
	}

	return &pipelineMetrics{
		synthesisAttempts: synthesisAttempts,
		variants:          variants,
		indexed:           indexed,
		skipped:           skipped,
		jobsEnqueued:      jobsEnqueued,
		workerErrors:      workerErrors,
	}, nil
}

func attrCategory(category string) attribute.KeyValue {
	return attribute.String(AttrCategory, NormalizeCategory(category))
}

func (p *pipelineMetrics) RecordSynthesisAttempt(ctx context.Context, category, status string) {
	p.synthesisAttempts.Add(ctx, 1, metric.WithAttributes(
		attrCategory(category),
		attribute.String(AttrStatus, NormalizeReason(status, AllowedSynthesisStatuses)),
	))
}

func (p *pipelineMetrics) RecordVariantsGenerated(ctx context.Context, category string, count int) {
	p.variants.Add(ctx, int64(count), metric.WithAttributes(attrCategory(category)))
}

func (p *pipelineMetrics) RecordPointsIndexed(ctx context.Context, category string, count int) {
	p.indexed.Add(ctx, int64(count), metric.WithAttributes(attrCategory(category)))
}

func (p *pipelineMetrics) RecordPointSkipped(ctx context.Context, category, reason string) {
	p.skipped.Add(ctx, 1, metric.WithAttributes(
		attrCategory(category),
		attribute.String(AttrReason, NormalizeReason(reason, AllowedSkipReasons)),
	))
}

func (p *pipelineMetrics) RecordJobsEnqueued(ctx context.Context, count int64) {
	p.jobsEnqueued.Add(ctx, count)
}

func (p *pipelineMetrics) RecordWorkerError(ctx context.Context, reason string) {
	p.workerErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrReason, NormalizeReason(reason, AllowedIndexWorkerReasons)),
	))
}
