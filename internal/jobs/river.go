package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

// ClientConfig configures the River client.
type ClientConfig struct {
	// Workers is the default queue concurrency. Zero builds an insert-only client.
	Workers     int
	MaxAttempts int
	JobTimeout  time.Duration
}

// Migrate applies River's schema migrations.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(db), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}

	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("migrate river schema: %w", err)
	}

	return nil
}

// NewClient creates a River client. worker may be nil for an insert-only client.
func NewClient(db *pgxpool.Pool, cfg ClientConfig, worker *IndexTermWorker, errHandler *ErrorHandler) (*river.Client[pgx.Tx], error) {
	rc := &river.Config{
		MaxAttempts: cfg.MaxAttempts,
		JobTimeout:  cfg.JobTimeout,
	}

	if errHandler != nil {
		rc.ErrorHandler = errHandler
	}

	if worker != nil && cfg.Workers > 0 {
		workers := river.NewWorkers()
		river.AddWorker(workers, worker)

		rc.Workers = workers
		rc.Queues = map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.Workers},
		}
	}

	client, err := river.NewClient(riverpgxv5.New(db), rc)
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}

	return client, nil
}
