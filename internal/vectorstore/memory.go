package vectorstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	vecutil "github.com/KoSuyeon/SKAI-project/pkg/embeddings"
)

type memoryCollection struct {
	dim    int
	points map[uuid.UUID]models.IndexedPoint
}

// MemoryStore is an in-process Store with brute-force cosine search.
// It backs tests and single-run evaluations that do not need persistence.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// EnsureCollection creates the collection if absent.
func (s *MemoryStore) EnsureCollection(_ context.Context, name string, dim int) error {
	if err := validateCollection(name, dim); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		if c.dim != dim {
			return fmt.Errorf("%w: collection %s has dimension %d, requested %d", ErrDimensionMismatch, name, c.dim, dim)
		}

		return nil
	}

	s.collections[name] = &memoryCollection{dim: dim, points: make(map[uuid.UUID]models.IndexedPoint)}

	return nil
}

// Upsert stores copies of the points, replacing any with the same ID.
func (s *MemoryStore) Upsert(_ context.Context, collection string, points []models.IndexedPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return collectionNotFound(collection)
	}

	for _, p := range points {
		if len(p.Vector) != c.dim {
			return fmt.Errorf("%w: point %s has %d, want %d", ErrDimensionMismatch, p.Value, len(p.Vector), c.dim)
		}
	}

	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		p.Vector = vec
		c.points[p.ID] = p
	}

	return nil
}

// Search scans every point of the category.
func (s *MemoryStore) Search(
	_ context.Context, collection string, query []float32, category datatypes.Category, limit int,
) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, collectionNotFound(collection)
	}

	if len(query) != c.dim {
		return nil, fmt.Errorf("%w: query has %d, want %d", ErrDimensionMismatch, len(query), c.dim)
	}

	hits := make([]Hit, 0, len(c.points))

	for _, p := range c.points {
		if p.Category != category {
			continue
		}

		hits = append(hits, Hit{ID: p.ID, Category: p.Category, Value: p.Value, Score: vecutil.Cosine(query, p.Vector)})
	}

	return rankHits(hits, limit), nil
}

// Count returns the number of points, optionally restricted to one category.
func (s *MemoryStore) Count(_ context.Context, collection string, category datatypes.Category) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return 0, collectionNotFound(collection)
	}

	if category == "" {
		return len(c.points), nil
	}

	n := 0

	for _, p := range c.points {
		if p.Category == category {
			n++
		}
	}

	return n, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
