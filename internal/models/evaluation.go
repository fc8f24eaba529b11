package models

import (
	"time"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
)

// QueryResult is the classified outcome of replaying one corpus record.
// CorrectTop2 is nil when the second candidate was not evaluated (missing, or
// outside the score-gap threshold).
type QueryResult struct {
	Category    datatypes.Category `json:"label"`
	Input       string             `json:"input"`
	QueryText   string             `json:"query_text"`
	TrueName    string             `json:"true_name"`
	Top1        *Candidate         `json:"top1,omitempty"`
	Top2        *Candidate         `json:"top2,omitempty"`
	CorrectTop1 bool               `json:"is_correct_top1"`
	CorrectTop2 *bool              `json:"is_correct_top2,omitempty"`
	Elapsed     time.Duration      `json:"search_time"`
}

// CorrectCombined reports whether either ranked candidate matched the expected term.
func (r QueryResult) CorrectCombined() bool {
	return r.CorrectTop1 || (r.CorrectTop2 != nil && *r.CorrectTop2)
}

// CategorySummary aggregates accuracy and latency for one category.
type CategorySummary struct {
	Category         datatypes.Category `json:"label"`
	Top1Accuracy     float64            `json:"top1_accuracy"`
	Top2Accuracy     float64            `json:"top2_accuracy"`
	CombinedAccuracy float64            `json:"combined_accuracy"`
	AvgLatency       time.Duration      `json:"avg_search_time"`
	Count            int                `json:"total_count"`
	Top2Evaluated    int                `json:"top2_evaluated"`
}
