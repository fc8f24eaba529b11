// Package vectorstore holds the category-partitioned term index. Every backend
// stores one point per (category, value), ranks by cosine similarity, and never
// returns points outside the requested category.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
)

// Store errors.
var (
	// ErrCollectionNotFound is returned when a collection has not been created.
	ErrCollectionNotFound = normerrors.NewNotFoundError("collection", "collection not found")
	// ErrDimensionMismatch is returned when a vector does not match the collection dimension.
	ErrDimensionMismatch = errors.New("vector dimension does not match collection")
	// ErrInvalidCollection is returned for empty collection names or non-positive dimensions.
	ErrInvalidCollection = errors.New("invalid collection")
)

// Metric is the only similarity metric the term index uses.
const Metric = "cosine"

// Hit is one ranked search result. Score is cosine similarity (1 - cosine distance).
type Hit struct {
	ID       uuid.UUID
	Category datatypes.Category
	Value    string
	Score    float64
}

// Candidate converts the hit to the payload the query engine returns.
func (h Hit) Candidate() *models.Candidate {
	return &models.Candidate{Value: h.Value, Score: h.Score}
}

// Store is a named-collection vector index with category-filtered search.
type Store interface {
	// EnsureCollection creates the collection with the given dimension if absent.
	// An existing collection with a different dimension is an error.
	EnsureCollection(ctx context.Context, name string, dim int) error

	// Upsert writes points keyed by ID; an existing point with the same ID is replaced.
	Upsert(ctx context.Context, collection string, points []models.IndexedPoint) error

	// Search returns up to limit points of the given category ordered by descending score.
	Search(ctx context.Context, collection string, query []float32, category datatypes.Category, limit int) ([]Hit, error)

	// Count returns the number of points in the collection; an empty category counts all.
	Count(ctx context.Context, collection string, category datatypes.Category) (int, error)

	Close() error
}

func validateCollection(name string, dim int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidCollection)
	}

	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidCollection, dim)
	}

	return nil
}

func collectionNotFound(name string) error {
	return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
}

// rankHits orders hits by descending score; equal scores fall back to value so
// results are reproducible across backends.
func rankHits(hits []Hit, limit int) []Hit {
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return strings.Compare(a.Value, b.Value)
		}
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	return hits
}
