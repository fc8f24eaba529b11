package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/search"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		category string
		limit    int
		dictPath string
	)

	cmd := &cobra.Command{
		Use:   "search <input>",
		Short: "Show the ranked candidates for one input",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := a.cfg

			c, err := datatypes.ParseCategory(category)
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

			input := strings.Join(args, " ")
			start := time.Now()

			hits, err := engine.Search(ctx, input, c, limit)
			if err != nil {
				return err
			}

			elapsed := time.Since(start)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "query: %q (%s)\n", engine.QueryText(input, c), c)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "rank\tvalue\tscore")

			for i, h := range hits {
				fmt.Fprintf(tw, "%d\t%s\t%.4f\n", i+1, h.Value, h.Score)
			}

			if err := tw.Flush(); err != nil {
				return fmt.Errorf("write results: %w", err)
			}

			if len(hits) >= 2 {
				m := models.Match{Top1: hits[0].Candidate(), Top2: hits[1].Candidate()}
				fmt.Fprintf(out, "top-2 gap: %.4f (evaluated: %t)\n",
					hits[0].Score-hits[1].Score, search.Top2Evaluated(m, cfg.ScoreGapThreshold))
			}

			fmt.Fprintf(out, "search time: %.4fs\n", elapsed.Seconds())

			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", string(datatypes.EquipmentType), "category to search")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of candidates")
	cmd.Flags().StringVar(&dictPath, "dictionary", "", "build the index from this workbook first")

	return cmd
}
