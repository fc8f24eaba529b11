package search

import (
	"math"
	"strings"

	"github.com/KoSuyeon/SKAI-project/internal/models"
)

// DefaultScoreGapThreshold is the largest top-1/top-2 score gap at which the
// second candidate still counts as a plausible answer.
const DefaultScoreGapThreshold = 0.01

// Top2Evaluated reports whether the second candidate is close enough to the
// first to be considered: both exist and |s1 - s2| < threshold.
func Top2Evaluated(m models.Match, threshold float64) bool {
	if m.Top1 == nil || m.Top2 == nil {
		return false
	}

	return math.Abs(m.Top1.Score-m.Top2.Score) < threshold
}

// Classify compares a match against the expected canonical term. correctTop2 is
// nil when the second candidate is not evaluated.
func Classify(m models.Match, expected string, threshold float64) (correctTop1 bool, correctTop2 *bool) {
	expected = strings.TrimSpace(expected)

	if m.Top1 != nil {
		correctTop1 = strings.TrimSpace(m.Top1.Value) == expected
	}

	if Top2Evaluated(m, threshold) {
		ok := strings.TrimSpace(m.Top2.Value) == expected
		correctTop2 = &ok
	}

	return correctTop1, correctTop2
}
