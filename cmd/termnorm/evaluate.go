package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/KoSuyeon/SKAI-project/internal/config"
	"github.com/KoSuyeon/SKAI-project/internal/dataset"
	"github.com/KoSuyeon/SKAI-project/internal/embeddings"
	"github.com/KoSuyeon/SKAI-project/internal/evaluation"
	"github.com/KoSuyeon/SKAI-project/internal/observability"
	"github.com/KoSuyeon/SKAI-project/internal/vectorstore"
)

func newEvaluateCmd(a *app) *cobra.Command {
	var (
		corpusPath string
		output     string
		dictPath   string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Replay the corpus through the query engine and report accuracy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := a.cfg

			if err := requireFlag("output", output); err != nil {
				return err
			}

			corpus, err := dataset.ReadCorpusFile(corpusPath)
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

			if err := prepareIndex(ctx, cfg, emb, store, tel.metrics, dictPath); err != nil {
				return err
			}

			engine, err := newEngine(cfg, emb, store, tel.metrics)
			if err != nil {
				return err
			}

			evaluator := evaluation.NewEvaluator(engine,
				evaluation.WithThreshold(cfg.ScoreGapThreshold),
				evaluation.WithWorkers(cfg.Workers),
				evaluation.WithProgress(os.Stderr),
			)

			start := time.Now()

			results, err := evaluator.Run(ctx, corpus)
			if err != nil {
				return err
			}

			if err := evaluation.WriteReportFile(output, results); err != nil {
				return err
			}

			slog.InfoContext(ctx, "Evaluation report written",
				"path", output,
				"records", len(results),
				"elapsed", time.Since(start).Round(time.Millisecond),
			)

			return evaluation.RenderSummary(cmd.OutOrStdout(), evaluation.Summarize(results))
		},
	}

	cmd.Flags().StringVar(&corpusPath, "corpus", "data/vdb_search_test.csv", "labeled corpus CSV")
	cmd.Flags().StringVarP(&output, "output", "o", "data/vdb_search_test_results.csv", "report CSV to write")
	cmd.Flags().StringVar(&dictPath, "dictionary", "", "build the index from this workbook before evaluating")

	return cmd
}

// prepareIndex builds the index in-process when a dictionary is given (required for
// the memory store), then checks that the collection exists.
func prepareIndex(
	ctx context.Context, cfg *config.Config, emb embeddings.Client, store vectorstore.Store,
	m *observability.Metrics, dictPath string,
) error {
	if dictPath != "" {
		dict, err := loadDictionary(dictPath, nil)
		if err != nil {
			return err
		}

		builder := newBuilder(cfg, emb, store, m)
		if err := builder.EnsureCollection(ctx); err != nil {
			return err
		}

		handle, err := builder.Build(ctx, dict.ByCategory())
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}

		slog.InfoContext(ctx, "Index built", "collection", handle.Collection, "points", handle.Total())
	}

	return checkCollection(ctx, store, cfg.CollectionName)
}
