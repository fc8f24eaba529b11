package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/KoSuyeon/SKAI-project/internal/jobs"
)

func newIndexCmd(a *app) *cobra.Command {
	var (
		dictPath   string
		categories []string
		async      bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed every canonical term and upsert it into the vector index",
		Long: "Builds the term index in-process, or with --async enqueues one job per term " +
			"for `termnorm worker` to process.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := a.cfg

			dict, err := loadDictionary(dictPath, categories)
			if err != nil {
				return err
			}

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

			start := time.Now()

			if async {
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

				client, err := jobs.NewClient(pool, jobs.ClientConfig{MaxAttempts: cfg.RiverMaxAttempts}, nil, nil)
				if err != nil {
					return err
				}

				stats, err := jobs.EnqueueAll(ctx, dict, cfg.CollectionName, jobs.NewRiverJobInserter(client), tel.metrics.Pipeline)
				if err != nil {
					return err
				}

				cmd.Printf("enqueued %d index jobs into %s (%d already queued)\n",
					stats.Enqueued, cfg.CollectionName, stats.Duplicates)

				if stats.Errors > 0 {
					return fmt.Errorf("%d of %d index jobs failed to enqueue", stats.Errors, dict.Total())
				}

				return nil
			}

			handle, err := builder.Build(ctx, dict.ByCategory())
			if err != nil {
				return err
			}

			for _, c := range dict.Categories() {
				slog.InfoContext(ctx, "Category indexed",
					"category", c,
					"indexed", handle.Indexed[c],
					"skipped", handle.Skipped[c],
				)
			}

			slog.InfoContext(ctx, "Index built",
				"collection", handle.Collection,
				"points", handle.Total(),
				"elapsed", time.Since(start).Round(time.Millisecond),
			)

			return nil
		},
	}

	cmd.Flags().StringVar(&dictPath, "dictionary", defaultDictionaryPath, "dictionary workbook (.xlsx)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "restrict to these categories (default all)")
	cmd.Flags().BoolVar(&async, "async", false, "enqueue per-term jobs on the River queue instead of indexing inline")

	return cmd
}
