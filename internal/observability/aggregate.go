package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all normalizer metric collectors. When metrics are disabled, all fields are nil.
// Components accept the matching interface and already handle nil.
type Metrics struct {
	Search   SearchMetrics
	Pipeline PipelineMetrics
	Cache    CacheMetrics
	HTTP     HTTPMetrics
}

// NewMetrics creates every collector from the given meter.
// Returns an empty Metrics when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		return &Metrics{}, nil
	}

	search, err := NewSearchMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("search metrics: %w", err)
	}

	pipeline, err := NewPipelineMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("pipeline metrics: %w", err)
	}

	cache, err := NewCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	httpMetrics, err := NewHTTPMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	return &Metrics{
		Search:   search,
		Pipeline: pipeline,
		Cache:    cache,
		HTTP:     httpMetrics,
	}, nil
}
