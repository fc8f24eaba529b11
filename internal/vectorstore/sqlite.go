package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
	vecutil "github.com/KoSuyeon/SKAI-project/pkg/embeddings"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS vector_collections (
	name       TEXT PRIMARY KEY,
	dim        INTEGER NOT NULL,
	metric     TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS vector_points (
	collection TEXT NOT NULL REFERENCES vector_collections(name),
	id         TEXT NOT NULL,
	category   TEXT NOT NULL,
	value      TEXT NOT NULL,
	vector     TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS vector_points_category_idx ON vector_points(collection, category);
`

// SQLiteStore persists points in SQLite with JSON-encoded vectors and scores them
// in process. Suitable for dictionaries of a few thousand terms without a Postgres server.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the schema on db and returns a store that owns db.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) collectionDim(ctx context.Context, name string) (int, error) {
	var dim int

	err := s.db.QueryRowContext(ctx, `SELECT dim FROM vector_collections WHERE name = ?`, name).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, collectionNotFound(name)
	}

	if err != nil {
		return 0, fmt.Errorf("read collection %s: %w", name, err)
	}

	return dim, nil
}

// EnsureCollection registers the collection if absent.
func (s *SQLiteStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	if err := validateCollection(name, dim); err != nil {
		return err
	}

	existing, err := s.collectionDim(ctx, name)
	if err == nil {
		if existing != dim {
			return fmt.Errorf("%w: collection %s has dimension %d, requested %d", ErrDimensionMismatch, name, existing, dim)
		}

		return nil
	}

	if !errors.Is(err, ErrCollectionNotFound) {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO vector_collections(name, dim, metric, created_at) VALUES(?, ?, ?, ?)`,
		name, dim, Metric, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	return nil
}

// Upsert writes all points in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, collection string, points []models.IndexedPoint) error {
	dim, err := s.collectionDim(ctx, collection)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)

	for _, p := range points {
		if len(p.Vector) != dim {
			return fmt.Errorf("%w: point %s has %d, want %d", ErrDimensionMismatch, p.Value, len(p.Vector), dim)
		}

		vecJSON, err := json.Marshal(p.Vector)
		if err != nil {
			return fmt.Errorf("encode vector: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO vector_points(collection, id, category, value, vector, updated_at)
			VALUES(?, ?, ?, ?, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET
				category = excluded.category,
				value = excluded.value,
				vector = excluded.vector,
				updated_at = excluded.updated_at`,
			collection, p.ID.String(), string(p.Category), p.Value, string(vecJSON), now,
		)
		if err != nil {
			return fmt.Errorf("upsert point %s: %w", p.Value, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}

	return nil
}

// Search loads the category's vectors and ranks them by cosine similarity.
func (s *SQLiteStore) Search(
	ctx context.Context, collection string, query []float32, category datatypes.Category, limit int,
) ([]Hit, error) {
	dim, err := s.collectionDim(ctx, collection)
	if err != nil {
		return nil, err
	}

	if len(query) != dim {
		return nil, fmt.Errorf("%w: query has %d, want %d", ErrDimensionMismatch, len(query), dim)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, value, vector FROM vector_points WHERE collection = ? AND category = ?`,
		collection, string(category),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	defer rows.Close()

	var hits []Hit

	for rows.Next() {
		var idStr, value, vecStr string
		if err := rows.Scan(&idStr, &value, &vecStr); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}

		var vec []float32
		if err := json.Unmarshal([]byte(vecStr), &vec); err != nil || len(vec) != dim {
			continue
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}

		hits = append(hits, Hit{ID: id, Category: category, Value: value, Score: vecutil.Cosine(query, vec)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating points: %w", err)
	}

	return rankHits(hits, limit), nil
}

// Count returns the number of points, optionally restricted to one category.
func (s *SQLiteStore) Count(ctx context.Context, collection string, category datatypes.Category) (int, error) {
	if _, err := s.collectionDim(ctx, collection); err != nil {
		return 0, err
	}

	var n int

	var err error
	if category == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_points WHERE collection = ?`, collection).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM vector_points WHERE collection = ? AND category = ?`, collection, string(category),
		).Scan(&n)
	}

	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}

	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}

	return nil
}

var _ Store = (*SQLiteStore)(nil)
