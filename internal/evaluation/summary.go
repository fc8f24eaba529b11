package evaluation

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
)

// Summarize aggregates results per category, sorted by category name.
//
// Top-1 and combined accuracy are averaged over every record of the category.
// Top-2 accuracy is averaged over the records whose second candidate was
// evaluated only, and is 0 when there were none; Top2Evaluated carries that
// denominator.
func Summarize(results []models.QueryResult) []models.CategorySummary {
	type acc struct {
		count, top1, top2, top2Evaluated, combined int
		elapsed                                    time.Duration
	}

	byCategory := make(map[datatypes.Category]*acc)

	for _, r := range results {
		a, ok := byCategory[r.Category]
		if !ok {
			a = &acc{}
			byCategory[r.Category] = a
		}

		a.count++
		a.elapsed += r.Elapsed

		if r.CorrectTop1 {
			a.top1++
		}

		if r.CorrectTop2 != nil {
			a.top2Evaluated++

			if *r.CorrectTop2 {
				a.top2++
			}
		}

		if r.CorrectCombined() {
			a.combined++
		}
	}

	out := make([]models.CategorySummary, 0, len(byCategory))

	for c, a := range byCategory {
		s := models.CategorySummary{
			Category:         c,
			Count:            a.count,
			Top1Accuracy:     float64(a.top1) / float64(a.count),
			CombinedAccuracy: float64(a.combined) / float64(a.count),
			AvgLatency:       a.elapsed / time.Duration(a.count),
			Top2Evaluated:    a.top2Evaluated,
		}

		if a.top2Evaluated > 0 {
			s.Top2Accuracy = float64(a.top2) / float64(a.top2Evaluated)
		}

		out = append(out, s)
	}

	slices.SortFunc(out, func(a, b models.CategorySummary) int {
		return strings.Compare(string(a.Category), string(b.Category))
	})

	return out
}

// RenderSummary writes an aligned table: accuracies as percentages with two
// decimals, average search time in seconds with four.
func RenderSummary(w io.Writer, summaries []models.CategorySummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "label\ttop1_accuracy\ttop2_accuracy\tcombined_accuracy\tavg_search_time\ttotal_count\ttop2_evaluated")

	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.4f\t%d\t%d\n",
			s.Category,
			s.Top1Accuracy*100,
			s.Top2Accuracy*100,
			s.CombinedAccuracy*100,
			s.AvgLatency.Seconds(),
			s.Count,
			s.Top2Evaluated,
		)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}

	return nil
}
