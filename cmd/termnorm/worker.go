package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/KoSuyeon/SKAI-project/internal/jobs"
)

const (
	workerJobTimeout  = 2 * time.Minute
	workerStopTimeout = 30 * time.Second
)

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process index jobs enqueued by `index --async`",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := a.cfg

			tel, err := setupTelemetry(ctx, cfg, cfg.MetricsAddr != "")
			if err != nil {
				return err
			}
			defer tel.Close()

			emb, store, err := openIndex(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			builder := newBuilder(cfg, emb, store, tel.metrics)
			if err := builder.EnsureCollection(ctx); err != nil {
				return err
			}

			pool, owned, err := openQueuePool(ctx, cfg, store)
			if err != nil {
				return err
			}

			if owned {
				defer pool.Close()
			}

			if err := jobs.Migrate(ctx, pool); err != nil {
				return err
			}

			var limiter *rate.Limiter
			if cfg.EmbeddingRateLimit > 0 {
				limiter = rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), 1)
			}

			worker := jobs.NewIndexTermWorker(jobs.IndexWorkerDeps{
				Indexers:    map[string]jobs.TermIndexer{cfg.CollectionName: builder},
				RateLimiter: limiter,
				Metrics:     tel.metrics.Pipeline,
			})

			client, err := jobs.NewClient(pool, jobs.ClientConfig{
				Workers:     cfg.RiverWorkers,
				MaxAttempts: cfg.RiverMaxAttempts,
				JobTimeout:  workerJobTimeout,
			}, worker, &jobs.ErrorHandler{Metrics: tel.metrics.Pipeline})
			if err != nil {
				return err
			}

			if err := client.Start(ctx); err != nil {
				return fmt.Errorf("start river: %w", err)
			}

			slog.InfoContext(ctx, "Index worker started",
				"collection", cfg.CollectionName,
				"workers", cfg.RiverWorkers,
				"max_attempts", cfg.RiverMaxAttempts,
				"rate_limit", cfg.EmbeddingRateLimit,
			)

			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), workerStopTimeout)
			defer cancel()

			if err := client.Stop(stopCtx); err != nil {
				return fmt.Errorf("stop river: %w", err)
			}

			slog.Info("Index worker stopped")

			return nil
		},
	}
}
