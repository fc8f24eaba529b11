// Package api assembles the HTTP surface of the normalizer: the chi router,
// middleware chain and handlers.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KoSuyeon/SKAI-project/internal/api/handlers"
	"github.com/KoSuyeon/SKAI-project/internal/api/middleware"
	"github.com/KoSuyeon/SKAI-project/internal/api/response"
	"github.com/KoSuyeon/SKAI-project/internal/observability"
)

// DefaultMaxBodyBytes bounds POST bodies; normalize requests are a few hundred bytes.
const DefaultMaxBodyBytes = 64 << 10

// RouterParams holds the dependencies of NewRouter.
type RouterParams struct {
	Normalize *handlers.NormalizeHandler
	Health    *handlers.HealthHandler
	// MetricsHandler serves /metrics when non-nil.
	MetricsHandler http.Handler
	HTTPMetrics    observability.HTTPMetrics
	MaxBodyBytes   int64
}

// NewRouter builds the handler chain: Metrics -> RequestID -> Logging -> MaxBody -> routes.
func NewRouter(p RouterParams) http.Handler {
	maxBody := p.MaxBodyBytes
	if maxBody == 0 {
		maxBody = DefaultMaxBodyBytes
	}

	var tooLarge middleware.BodyLimitRecorder
	if p.HTTPMetrics != nil {
		tooLarge = p.HTTPMetrics
	}

	r := chi.NewRouter()
	r.Use(middleware.Metrics(p.HTTPMetrics))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.MaxBody(maxBody, tooLarge))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NewProblem(http.StatusNotFound, "No such route").WithInstance(r.URL.Path).Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.RespondMethodNotAllowed(w, "Method not supported for this route")
	})

	r.Get("/health", p.Health.Check)
	r.Get("/ready", p.Health.Ready)

	if p.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", p.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/normalize", p.Normalize.NormalizeJSON)
		r.Get("/normalize", p.Normalize.NormalizeQuery)
		r.Get("/candidates", p.Normalize.Candidates)
	})

	return r
}

// NewServer wraps the router in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 30 * time.Second
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}
