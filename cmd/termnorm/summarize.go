package main

import (
	"github.com/spf13/cobra"

	"github.com/KoSuyeon/SKAI-project/internal/evaluation"
)

func newSummarizeCmd(_ *app) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Print per-category accuracy from an evaluation report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := evaluation.ReadReportFile(reportPath)
			if err != nil {
				return err
			}

			return evaluation.RenderSummary(cmd.OutOrStdout(), evaluation.Summarize(results))
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "data/vdb_search_test_results.csv", "report CSV written by evaluate")

	return cmd
}
