package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics instruments the normalize API. Routes are chi patterns, never raw paths.
type HTTPMetrics interface {
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
	RecordRequestBodyTooLarge(ctx context.Context)
}

type httpMetrics struct {
	requests     metric.Int64Counter
	duration     metric.Float64Histogram
	bodyTooLarge metric.Int64Counter
}

// NewHTTPMetrics returns (nil, nil) when meter is nil.
func NewHTTPMetrics(meter metric.Meter) (HTTPMetrics, error) {
	if meter == nil {
		//nolint:nilnil // nil metrics means disabled
		return nil, nil
	}

	m := &httpMetrics{}

	var err error

	if m.requests, err = meter.Int64Counter(MetricNameHTTPRequests,
		metric.WithDescription("API requests by method, route and status class."),
		metric.WithUnit("{request}")); err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricNameHTTPRequests, err)
	}

	if m.duration, err = meter.Float64Histogram(MetricNameHTTPRequestDuration,
		metric.WithDescription("API request latency by method and route."),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricNameHTTPRequestDuration, err)
	}

	if m.bodyTooLarge, err = meter.Int64Counter(MetricNameHTTPBodyTooLarge,
		metric.WithDescription("API requests rejected with 413."),
		metric.WithUnit("{request}")); err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricNameHTTPBodyTooLarge, err)
	}

	return m, nil
}

func (m *httpMetrics) RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration) {
	methodAttr := attribute.String("method", method)
	routeAttr := attribute.String("route", route)

	m.requests.Add(ctx, 1, metric.WithAttributes(methodAttr, routeAttr, attribute.String("status_class", statusClass)))
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(methodAttr, routeAttr))
}

func (m *httpMetrics) RecordRequestBodyTooLarge(ctx context.Context) {
	m.bodyTooLarge.Add(ctx, 1)
}
