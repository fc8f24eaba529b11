package models

import (
	"github.com/google/uuid"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
)

// pointNamespace scopes the deterministic point IDs generated by PointID.
var pointNamespace = uuid.MustParse("6f1c1f64-5b52-4b8e-9d55-2d8a1b7c0e3a")

// CanonicalTerm is a dictionary-approved value in exactly one category.
type CanonicalTerm struct {
	Category datatypes.Category `json:"category"`
	Value    string             `json:"value"`
}

// IndexedPoint is one vector in the term index with its {category, value} payload.
type IndexedPoint struct {
	ID       uuid.UUID          `json:"id"`
	Vector   []float32          `json:"-"`
	Category datatypes.Category `json:"category"`
	Value    string             `json:"value"`
}

// PointID returns the stable ID for a (category, value) pair so that re-indexing
// replaces the existing point instead of adding a duplicate.
func PointID(category datatypes.Category, value string) uuid.UUID {
	return uuid.NewSHA1(pointNamespace, []byte(string(category)+"\x00"+value))
}

// NewIndexedPoint builds a point with its deterministic ID.
func NewIndexedPoint(category datatypes.Category, value string, vector []float32) IndexedPoint {
	return IndexedPoint{
		ID:       PointID(category, value),
		Vector:   vector,
		Category: category,
		Value:    value,
	}
}

// Candidate is a ranked search hit: the payload value and its similarity score.
type Candidate struct {
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

// Match holds the first- and second-ranked candidates of a category-filtered search.
// Either may be nil when the filtered result set is smaller than two.
type Match struct {
	Top1 *Candidate `json:"top1,omitempty"`
	Top2 *Candidate `json:"top2,omitempty"`
}
