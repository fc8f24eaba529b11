package observability

import (
	"context"
	"fmt"
	"log/slog"
)

type (
	requestIDKey struct{}
	runIDKey     struct{}
	stageKey     struct{}
)

// WithRunID returns a context whose log records carry run_id.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// WithStage returns a context whose log records carry stage (generate, index, evaluate, ...).
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// WithRequestID returns a context whose log records carry request_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)

	return id
}

// RunID returns the run ID stored in ctx, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)

	return id
}

// RunContextHandler wraps a slog.Handler and injects run_id, stage, and request_id
// from the context into each log record when present.
type RunContextHandler struct {
	inner slog.Handler
}

// NewRunHandler returns a handler that adds run context to records.
func NewRunHandler(inner slog.Handler) *RunContextHandler {
	return &RunContextHandler{inner: inner}
}

// Enabled reports whether the inner handler is enabled for the given level.
func (h *RunContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds run_id, stage, and request_id from context to the record, then forwards to the inner handler.
func (h *RunContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		r.AddAttrs(slog.String("run_id", id))
	}

	if stage, ok := ctx.Value(stageKey{}).(string); ok && stage != "" {
		r.AddAttrs(slog.String("stage", stage))
	}

	if id := RequestID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}

	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("inner handler: %w", err)
	}

	return nil
}

// WithAttrs returns a handler whose attributes are the concatenation of the inner's and attrs.
func (h *RunContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RunContextHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup returns a handler for the given group.
func (h *RunContextHandler) WithGroup(name string) slog.Handler {
	return &RunContextHandler{inner: h.inner.WithGroup(name)}
}
