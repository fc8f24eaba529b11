package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CacheMetrics counts lookups against the in-process caches.
type CacheMetrics interface {
	RecordHit(ctx context.Context, cacheName string)
	RecordMiss(ctx context.Context, cacheName string)
}

// cacheLookups backs CacheMetrics with one counter split by result=hit|miss.
type cacheLookups struct {
	lookups metric.Int64Counter
}

// NewCacheMetrics returns (nil, nil) when meter is nil.
func NewCacheMetrics(meter metric.Meter) (CacheMetrics, error) {
	if meter == nil {
		//nolint:nilnil // nil metrics means disabled
		return nil, nil
	}

	lookups, err := meter.Int64Counter(
		MetricNameCacheLookups,
		metric.WithDescription("Query embedding cache lookups by cache and result (hit, miss). "+
			"A miss costs one embedding provider call."),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricNameCacheLookups, err)
	}

	return &cacheLookups{lookups: lookups}, nil
}

func (c *cacheLookups) RecordHit(ctx context.Context, cacheName string) {
	c.record(ctx, cacheName, "hit")
}

func (c *cacheLookups) RecordMiss(ctx context.Context, cacheName string) {
	c.record(ctx, cacheName, "miss")
}

func (c *cacheLookups) record(ctx context.Context, cacheName, result string) {
	c.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrCache, NormalizeCacheName(cacheName)),
		attribute.String(AttrResult, result),
	))
}
