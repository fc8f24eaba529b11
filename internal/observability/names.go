// Package observability provides structured-logging helpers and OpenTelemetry metrics
// (Prometheus exporter) for the normalizer.
package observability

import (
	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
)

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameSearchQueries       = "termnorm_search_queries_total"
	MetricNameSearchDuration      = "termnorm_search_duration_seconds"
	MetricNameSynthesisAttempts   = "termnorm_synthesis_attempts_total"
	MetricNameVariantsGenerated   = "termnorm_variants_generated_total"
	MetricNamePointsIndexed       = "termnorm_points_indexed_total"
	MetricNamePointsSkipped       = "termnorm_points_skipped_total"
	MetricNameIndexJobsEnqueued   = "termnorm_index_jobs_enqueued_total"
	MetricNameIndexWorkerErrors   = "termnorm_index_worker_errors_total"
	MetricNameCacheLookups        = "termnorm_cache_lookups_total"
	MetricNameHTTPRequests        = "termnorm_http_requests_total"
	MetricNameHTTPRequestDuration = "termnorm_http_request_duration_seconds"
	MetricNameHTTPBodyTooLarge    = "termnorm_http_request_body_too_large_total"
)

// Attribute keys.
const (
	AttrCache    = "cache"
	AttrCategory = "category"
	AttrOutcome  = "outcome"
	AttrReason   = "reason"
	AttrResult   = "result"
	AttrStatus   = "status"
)

// AllowedSearchOutcomes for termnorm_search_queries_total.
var AllowedSearchOutcomes = map[string]bool{
	"hit":   true,
	"empty": true,
	"error": true,
}

// AllowedSynthesisStatuses for termnorm_synthesis_attempts_total.
var AllowedSynthesisStatuses = map[string]bool{
	"success":   true,
	"retry":     true,
	"exhausted": true,
}

// AllowedSkipReasons for termnorm_points_skipped_total.
var AllowedSkipReasons = map[string]bool{
	"blank":      true,
	"duplicate":  true,
	"degenerate": true,
}

// AllowedIndexWorkerReasons for termnorm_index_worker_errors_total.
var AllowedIndexWorkerReasons = map[string]bool{
	"embedding_failed": true,
	"upsert_failed":    true,
	"invalid_args":     true,
	"exhausted":        true,
	"panic":            true,
}

// AllowedCacheNames bounds the "cache" label.
var AllowedCacheNames = map[string]bool{
	"query_embedding": true,
}

// NormalizeCategory returns the category if known, otherwise "unknown".
func NormalizeCategory(category string) string {
	if datatypes.Category(category).Valid() {
		return category
	}

	return "unknown"
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}

// NormalizeCacheName returns name if it is a known cache, otherwise "other".
func NormalizeCacheName(name string) string {
	return NormalizeReason(name, AllowedCacheNames)
}
