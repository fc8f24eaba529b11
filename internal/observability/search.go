package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SearchMetrics records normalization query outcomes and latency per category.
type SearchMetrics interface {
	RecordSearch(ctx context.Context, category, outcome string, duration time.Duration)
}

type searchMetrics struct {
	queries  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewSearchMetrics creates SearchMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewSearchMetrics(meter metric.Meter) (SearchMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	queries, err := meter.Int64Counter(
		MetricNameSearchQueries,
		metric.WithDescription("Normalization queries by category and outcome (hit, empty, error)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create search queries counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameSearchDuration,
		metric.WithDescription("Normalization query duration (embedding + vector search) in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create search duration histogram: %w", err)
	}

	return &searchMetrics{queries: queries, duration: duration}, nil
}

func (s *searchMetrics) RecordSearch(ctx context.Context, category, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(AttrCategory, NormalizeCategory(category)),
		attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedSearchOutcomes)),
	)
	s.queries.Add(ctx, 1, attrs)
	s.duration.Record(ctx, duration.Seconds(), attrs)
}
