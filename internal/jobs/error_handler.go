package jobs

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/KoSuyeon/SKAI-project/internal/observability"
)

// ErrorHandler reports failed and panicking index jobs. Metrics may be nil.
type ErrorHandler struct {
	Metrics observability.PipelineMetrics
}

// HandleError logs a failed attempt. Attempts that River will retry are
// warnings; the last one is an error and counts as exhausted.
func (h *ErrorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	level := slog.LevelWarn
	msg := "index job attempt failed, will retry"

	if job.Attempt >= job.MaxAttempts {
		level = slog.LevelError
		msg = "index job exhausted its attempts"
		h.record(ctx, "exhausted")
	}

	slog.Log(ctx, level, msg, jobAttrs(job, slog.Any("error", err))...)

	return nil
}

// HandlePanic cancels the job: a panic while indexing one term recurs on every retry.
func (h *ErrorHandler) HandlePanic(ctx context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	slog.ErrorContext(ctx, "index job panicked, cancelling",
		jobAttrs(job, slog.Any("panic_value", panicVal), slog.String("stack_trace", trace))...)
	h.record(ctx, "panic")

	return &river.ErrorHandlerResult{SetCancelled: true}
}

func (h *ErrorHandler) record(ctx context.Context, reason string) {
	if h.Metrics != nil {
		h.Metrics.RecordWorkerError(ctx, reason)
	}
}

func jobAttrs(job *rivertype.JobRow, extra ...slog.Attr) []any {
	attrs := []any{
		slog.Int64("job_id", job.ID),
		slog.String("job_kind", job.Kind),
		slog.Int("attempt", job.Attempt),
		slog.Int("max_attempts", job.MaxAttempts),
	}

	for _, a := range extra {
		attrs = append(attrs, a)
	}

	return attrs
}
