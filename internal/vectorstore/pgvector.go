package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/models"
)

// undefinedTable is the Postgres SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// PgvectorStore keeps each collection in its own table with a vector(dim) column.
// Search is an exact scan filtered by category; a dictionary has at most a few
// thousand rows per category, and an approximate index would drop filtered rows.
type PgvectorStore struct {
	db *pgxpool.Pool
}

// NewPgvectorStore creates a store on a pool whose connections have the pgvector
// types registered (database.WithVectorTypes). The store owns the pool.
func NewPgvectorStore(db *pgxpool.Pool) *PgvectorStore {
	return &PgvectorStore{db: db}
}

// Pool exposes the pool for components that share the database (the job queue).
func (s *PgvectorStore) Pool() *pgxpool.Pool {
	return s.db
}

func tableName(collection string) string {
	return pgx.Identifier{collection}.Sanitize()
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}

// EnsureCollection creates the collection table and category index if absent, then
// verifies the stored dimension.
func (s *PgvectorStore) EnsureCollection(ctx context.Context, name string, dim int) error {
	if err := validateCollection(name, dim); err != nil {
		return err
	}

	table := tableName(name)
	categoryIdx := pgx.Identifier{name + "_category_idx"}.Sanitize()

	//nolint:gosec // table names are sanitized identifiers, dim is an int
	_, err := s.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         uuid PRIMARY KEY,
			category   text NOT NULL,
			value      text NOT NULL,
			embedding  vector(%d) NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz NOT NULL DEFAULT now(),
			UNIQUE (category, value)
		);
		CREATE INDEX IF NOT EXISTS %s ON %s (category);`,
		table, dim, categoryIdx, table,
	))
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	existing, err := s.collectionDim(ctx, name)
	if err != nil {
		return err
	}

	if existing != dim {
		return fmt.Errorf("%w: collection %s has dimension %d, requested %d", ErrDimensionMismatch, name, existing, dim)
	}

	return nil
}

// collectionDim reads the declared vector dimension (atttypmod) of the embedding column.
func (s *PgvectorStore) collectionDim(ctx context.Context, name string) (int, error) {
	var dim int

	err := s.db.QueryRow(ctx, `
		SELECT a.atttypmod
		FROM pg_attribute a
		WHERE a.attrelid = to_regclass($1) AND a.attname = 'embedding' AND NOT a.attisdropped`,
		tableName(name),
	).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, collectionNotFound(name)
	}

	if err != nil {
		return 0, fmt.Errorf("read collection %s: %w", name, err)
	}

	return dim, nil
}

// Upsert inserts or updates points by ID in a single batch. On conflict the
// vector and payload are replaced and updated_at is bumped.
func (s *PgvectorStore) Upsert(ctx context.Context, collection string, points []models.IndexedPoint) error {
	if len(points) == 0 {
		return nil
	}

	now := time.Now()
	batch := &pgx.Batch{}

	//nolint:gosec // table name is a sanitized identifier
	query := fmt.Sprintf(`
		INSERT INTO %s (id, category, value, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id)
		DO UPDATE SET category = EXCLUDED.category, value = EXCLUDED.value,
			embedding = EXCLUDED.embedding, updated_at = $5`, tableName(collection))

	for _, p := range points {
		batch.Queue(query, p.ID, string(p.Category), p.Value, pgvector.NewVector(p.Vector), now)
	}

	if err := s.db.SendBatch(ctx, batch).Close(); err != nil {
		if isUndefinedTable(err) {
			return collectionNotFound(collection)
		}

		return fmt.Errorf("upsert points: %w", err)
	}

	return nil
}

// Search returns the nearest points of the category by cosine distance (<=>);
// score = 1 - distance.
func (s *PgvectorStore) Search(
	ctx context.Context, collection string, query []float32, category datatypes.Category, limit int,
) ([]Hit, error) {
	queryVec := pgvector.NewVector(query)

	//nolint:gosec // table name is a sanitized identifier
	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT id, value, (1 - (embedding <=> $1)) AS score
		FROM %s
		WHERE category = $2
		ORDER BY embedding <=> $1, value
		LIMIT $3`, tableName(collection)),
		queryVec, string(category), limit,
	)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, collectionNotFound(collection)
		}

		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	defer rows.Close()

	var hits []Hit

	for rows.Next() {
		var (
			id    uuid.UUID
			value string
			score float64
		)

		if err := rows.Scan(&id, &value, &score); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}

		hits = append(hits, Hit{ID: id, Category: category, Value: value, Score: score})
	}

	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, collectionNotFound(collection)
		}

		return nil, fmt.Errorf("iterating hits: %w", err)
	}

	return hits, nil
}

// Count returns the number of points, optionally restricted to one category.
func (s *PgvectorStore) Count(ctx context.Context, collection string, category datatypes.Category) (int, error) {
	var (
		n   int
		err error
	)

	//nolint:gosec // table name is a sanitized identifier
	if category == "" {
		err = s.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, tableName(collection))).Scan(&n)
	} else {
		err = s.db.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE category = $1`, tableName(collection)),
			string(category)).Scan(&n)
	}

	if err != nil {
		if isUndefinedTable(err) {
			return 0, collectionNotFound(collection)
		}

		return 0, fmt.Errorf("count points: %w", err)
	}

	return n, nil
}

// Close closes the pool.
func (s *PgvectorStore) Close() error {
	s.db.Close()

	return nil
}

var _ Store = (*PgvectorStore)(nil)
