package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KoSuyeon/SKAI-project/internal/observability"
)

const unmatchedRoute = "unmatched"

// Metrics records count and latency per chi route pattern. It must be the
// outermost middleware so the latency covers the whole chain. A nil recorder
// disables it.
func Metrics(rec observability.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rec == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			rec.RecordRequest(r.Context(), r.Method, routePattern(r), statusClass(rw.statusCode), time.Since(start))
		})
	}
}

// routePattern reads the matched template after routing, e.g. /v1/normalize.
// Raw paths never become labels.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}

	return unmatchedRoute
}

// statusClass buckets a status code as "2xx", "4xx" and so on.
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}

	return strconv.Itoa(code/100) + "xx"
}
