package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/KoSuyeon/SKAI-project/internal/dataset"
	"github.com/KoSuyeon/SKAI-project/internal/synthesis"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		dictPath   string
		output     string
		categories []string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Synthesize the labeled variant corpus from the dictionary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := a.cfg

			if err := requireFlag("output", output); err != nil {
				return err
			}

			if err := cfg.RequireSynthesis(); err != nil {
				return err
			}

			dict, err := loadDictionary(dictPath, categories)
			if err != nil {
				return err
			}

			tel, err := setupTelemetry(ctx, cfg, cfg.MetricsAddr != "")
			if err != nil {
				return err
			}
			defer tel.Close()

			completer := synthesis.NewChatClient(cfg.OpenRouterAPIKey, cfg.SynthesisBaseURL, cfg.SynthesisModel,
				synthesis.WithRateLimit(cfg.SynthesisRateLimit),
				synthesis.WithAppIdentity(cfg.SynthesisReferer, cfg.SynthesisTitle))

			gen := dataset.NewGenerator(completer,
				dataset.WithMaxAttempts(cfg.SynthesisMaxAttempts),
				dataset.WithRetryDelay(cfg.SynthesisRetryDelay),
				dataset.WithWorkers(cfg.Workers),
				dataset.WithProgress(os.Stderr),
				dataset.WithMetrics(tel.metrics.Pipeline),
			)

			start := time.Now()

			records, err := gen.GenerateAll(ctx, dict)
			if err != nil {
				return fmt.Errorf("generate corpus: %w", err)
			}

			if err := dataset.WriteCorpusFile(output, records); err != nil {
				return err
			}

			slog.InfoContext(ctx, "Corpus written",
				"path", output,
				"records", len(records),
				"terms", dict.Total(),
				"model", cfg.SynthesisModel,
				"elapsed", time.Since(start).Round(time.Millisecond),
			)

			return nil
		},
	}

	cmd.Flags().StringVar(&dictPath, "dictionary", defaultDictionaryPath, "dictionary workbook (.xlsx)")
	cmd.Flags().StringVarP(&output, "output", "o", "data/normalization_testset.csv", "corpus CSV to write")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "restrict to these categories (default all)")

	return cmd
}
