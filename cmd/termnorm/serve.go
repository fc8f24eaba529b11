package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/KoSuyeon/SKAI-project/internal/api"
	"github.com/KoSuyeon/SKAI-project/internal/api/handlers"
)

const serverShutdownWait = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var dictPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the normalize HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := a.cfg

			tel, err := setupTelemetry(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer tel.Close()

			emb, store, err := openIndex(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := prepareIndex(ctx, cfg, emb, store, tel.metrics, dictPath); err != nil {
				return err
			}

			engine, err := newEngine(cfg, emb, store, tel.metrics)
			if err != nil {
				return err
			}

			ready := func(ctx context.Context) error {
				return ensureIndexed(ctx, store, cfg.CollectionName)
			}

			router := api.NewRouter(api.RouterParams{
				Normalize:      handlers.NewNormalizeHandler(engine, cfg.ScoreGapThreshold),
				Health:         handlers.NewHealthHandler(ready),
				MetricsHandler: tel.handler,
				HTTPMetrics:    tel.metrics.HTTP,
			})

			server := api.NewServer(":"+cfg.HTTPPort, router)

			runErr := make(chan error, 1)

			go func() {
				slog.Info("Starting server", "port", cfg.HTTPPort, "collection", cfg.CollectionName)

				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					runErr <- fmt.Errorf("server: %w", err)
				}
			}()

			select {
			case err := <-runErr:
				return err
			case <-ctx.Done():
			}

			slog.Info("Shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownWait)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown server: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dictPath, "dictionary", "", "build the index from this workbook before serving")

	return cmd
}
