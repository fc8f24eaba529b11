package vectorstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
	"github.com/KoSuyeon/SKAI-project/pkg/database"
)

const testCollection = "dic_table_test"

func vec(xs ...float32) []float32 { return xs }

// runStoreContract exercises the behavior every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	ctx := context.Background()

	t.Run("search filters by category and ranks by score", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx, testCollection, 3))

		require.NoError(t, s.Upsert(ctx, testCollection, []models.IndexedPoint{
			models.NewIndexedPoint(datatypes.EquipmentType, "PUMP-01", vec(1, 0, 0)),
			models.NewIndexedPoint(datatypes.EquipmentType, "VALVE", vec(0.8, 0.6, 0)),
			models.NewIndexedPoint(datatypes.EquipmentType, "MOTOR", vec(0, 0, 1)),
			models.NewIndexedPoint(datatypes.Location, "PUMP ROOM", vec(1, 0, 0)),
		}))

		hits, err := s.Search(ctx, testCollection, vec(1, 0, 0), datatypes.EquipmentType, 2)
		require.NoError(t, err)
		require.Len(t, hits, 2)

		assert.Equal(t, "PUMP-01", hits[0].Value)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
		assert.Equal(t, "VALVE", hits[1].Value)
		assert.InDelta(t, 0.8, hits[1].Score, 1e-5)

		for _, h := range hits {
			assert.Equal(t, datatypes.EquipmentType, h.Category)
		}
	})

	t.Run("upsert is idempotent per category and value", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx, testCollection, 3))
		require.NoError(t, s.EnsureCollection(ctx, testCollection, 3), "EnsureCollection must be idempotent")

		p := models.NewIndexedPoint(datatypes.Priority, "긴급", vec(0, 1, 0))
		require.NoError(t, s.Upsert(ctx, testCollection, []models.IndexedPoint{p}))

		p.Vector = vec(0, 0, 1)
		require.NoError(t, s.Upsert(ctx, testCollection, []models.IndexedPoint{p}))

		n, err := s.Count(ctx, testCollection, datatypes.Priority)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		hits, err := s.Search(ctx, testCollection, vec(0, 0, 1), datatypes.Priority, 2)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-5, "second upsert must replace the vector")
	})

	t.Run("empty category returns no hits", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx, testCollection, 3))
		require.NoError(t, s.Upsert(ctx, testCollection, []models.IndexedPoint{
			models.NewIndexedPoint(datatypes.Location, "A동", vec(1, 0, 0)),
		}))

		hits, err := s.Search(ctx, testCollection, vec(1, 0, 0), datatypes.PhenomenonCode, 2)
		require.NoError(t, err)
		assert.Empty(t, hits)

		total, err := s.Count(ctx, testCollection, "")
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("missing collection", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Search(ctx, "no_such_collection", vec(1, 0, 0), datatypes.Location, 2)
		require.ErrorIs(t, err, ErrCollectionNotFound)
		require.ErrorIs(t, err, normerrors.ErrNotFound)

		_, err = s.Count(ctx, "no_such_collection", "")
		require.ErrorIs(t, err, ErrCollectionNotFound)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureCollection(ctx, testCollection, 3))

		err := s.EnsureCollection(ctx, testCollection, 4)
		require.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		t.Helper()

		return NewMemoryStore()
	})
}

func TestMemoryStore_RejectsWrongVectorLength(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.EnsureCollection(ctx, testCollection, 3))

	err := s.Upsert(ctx, testCollection, []models.IndexedPoint{
		models.NewIndexedPoint(datatypes.Location, "A동", vec(1, 0)),
	})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = s.Search(ctx, testCollection, vec(1, 0), datatypes.Location, 2)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestValidateCollection(t *testing.T) {
	require.ErrorIs(t, NewMemoryStore().EnsureCollection(context.Background(), " ", 3), ErrInvalidCollection)
	require.ErrorIs(t, NewMemoryStore().EnsureCollection(context.Background(), "c", 0), ErrInvalidCollection)
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		t.Helper()

		db, err := database.NewSQLite(context.Background(), database.MemorySQLite)
		require.NoError(t, err)

		s, err := NewSQLiteStore(context.Background(), db)
		require.NoError(t, err)

		t.Cleanup(func() { _ = s.Close() })

		return s
	})
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := fmt.Sprintf("%s/index.db", t.TempDir())

	db, err := database.NewSQLite(ctx, path)
	require.NoError(t, err)

	s, err := NewSQLiteStore(ctx, db)
	require.NoError(t, err)
	require.NoError(t, s.EnsureCollection(ctx, testCollection, 2))
	require.NoError(t, s.Upsert(ctx, testCollection, []models.IndexedPoint{
		models.NewIndexedPoint(datatypes.PhenomenonCode, "누유", vec(1, 1)),
	}))
	require.NoError(t, s.Close())

	db, err = database.NewSQLite(ctx, path)
	require.NoError(t, err)

	s, err = NewSQLiteStore(ctx, db)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	hits, err := s.Search(ctx, testCollection, vec(1, 1), datatypes.PhenomenonCode, 2)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "누유", hits[0].Value)
	assert.Equal(t, models.PointID(datatypes.PhenomenonCode, "누유"), hits[0].ID)
}

func TestRankHits_TieBreaksByValue(t *testing.T) {
	hits := rankHits([]Hit{
		{Value: "b", Score: 0.5},
		{Value: "a", Score: 0.5},
		{Value: "c", Score: 0.9},
	}, 2)

	require.Len(t, hits, 2)
	assert.Equal(t, "c", hits[0].Value)
	assert.Equal(t, "a", hits[1].Value)
}
