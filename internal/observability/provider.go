package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	meterScope         = "github.com/KoSuyeon/SKAI-project/internal/observability"
	defaultServiceName = "termnorm"
	cardinalityLimit   = 2000
)

// Histogram buckets in seconds. Search latency is dominated by the embedding
// call, so its buckets reach further than the API's.
var (
	searchBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	httpBuckets   = []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5}
)

// TelemetryConfig describes the process in the exported resource.
type TelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
}

// Telemetry is an OpenTelemetry meter provider exported through a private
// Prometheus registry. Handler serves that registry; Meter feeds NewMetrics.
type Telemetry struct {
	Handler http.Handler
	Meter   metric.Meter

	provider *sdkmetric.MeterProvider
}

// NewTelemetry builds the provider. The registry also carries the Go runtime
// and process collectors. Call Shutdown on exit.
func NewTelemetry(cfg TelemetryConfig) (*Telemetry, error) {
	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}

	attrs := []resource.Option{resource.WithAttributes(semconv.ServiceName(name))}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(cfg.ServiceVersion)))
	}

	res, err := resource.New(context.Background(), append(attrs, resource.WithSchemaURL(semconv.SchemaURL))...)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := prometheusexporter.New(prometheusexporter.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithCardinalityLimit(cardinalityLimit),
		sdkmetric.WithView(
			bucketView(MetricNameSearchDuration, searchBuckets),
			bucketView(MetricNameHTTPRequestDuration, httpBuckets),
		),
	)

	return &Telemetry{
		Handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Meter:    mp.Meter(meterScope),
		provider: mp,
	}, nil
}

// Shutdown flushes and stops the provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}

	return nil
}

func bucketView(instrument string, bounds []float64) sdkmetric.View {
	return sdkmetric.NewView(
		sdkmetric.Instrument{Name: instrument},
		sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: bounds}},
	)
}
