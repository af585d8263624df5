package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mlimwengu/CourseHubGo/internal/repository"
	"github.com/mlimwengu/CourseHubGo/pkg/database"
	apperrors "github.com/mlimwengu/CourseHubGo/pkg/errors"
)

// maxApplyAttempts bounds the read-mutate-write retry loop. Each retry means
// a concurrent writer advanced the document version between our read and
// conditional write.
const maxApplyAttempts = 5

// DocumentStore implements repository.DocumentStore using a versioned JSONB
// table in PostgreSQL.
type DocumentStore struct {
	pool database.DBTX
}

// NewDocumentStore creates a new PostgreSQL-backed document store.
func NewDocumentStore(pool database.DBTX) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Get fetches a single document by collection and ID.
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*repository.Document, error) {
	query := `
		SELECT collection, id, version, data, updated_at
		FROM aggregates
		WHERE collection = $1 AND id = $2`

	doc := &repository.Document{}
	err := s.pool.QueryRow(ctx, query, collection, id).Scan(
		&doc.Collection,
		&doc.ID,
		&doc.Version,
		&doc.Data,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(collection, id)
		}
		return nil, fmt.Errorf("query document: %w", err)
	}

	return doc, nil
}

// Insert creates a new document at version 1.
func (s *DocumentStore) Insert(ctx context.Context, collection, id string, data []byte) error {
	query := `
		INSERT INTO aggregates (collection, id, version, data, updated_at)
		VALUES ($1, $2, 1, $3, $4)
		ON CONFLICT (collection, id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query, collection, id, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.AlreadyExists(collection, "id", id)
	}

	return nil
}

// Apply runs the read-mutate-write cycle under optimistic concurrency. The
// conditional update matches the version read; zero rows affected means a
// concurrent writer won the race and the whole cycle restarts from a fresh
// read. After maxApplyAttempts lost races the call fails with a conflict.
func (s *DocumentStore) Apply(ctx context.Context, collection, id string, fn repository.Mutate) (*repository.Document, bool, error) {
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		doc, err := s.Get(ctx, collection, id)
		if err != nil {
			return nil, false, err
		}

		newData, changed, err := fn(doc.Data)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			return doc, false, nil
		}

		now := time.Now().UTC()
		tag, err := s.pool.Exec(ctx, `
			UPDATE aggregates
			SET version = version + 1, data = $1, updated_at = $2
			WHERE collection = $3 AND id = $4 AND version = $5`,
			newData, now, collection, id, doc.Version,
		)
		if err != nil {
			return nil, false, fmt.Errorf("update document: %w", err)
		}
		if tag.RowsAffected() == 1 {
			doc.Version++
			doc.Data = newData
			doc.UpdatedAt = now
			return doc, true, nil
		}
	}

	return nil, false, apperrors.Conflict(collection, id)
}

// List returns documents of a collection ordered by last update, newest
// first, along with the total count.
func (s *DocumentStore) List(ctx context.Context, collection string, page, perPage int) ([]repository.Document, int, error) {
	offset := (page - 1) * perPage

	query := `
		SELECT collection, id, version, data, updated_at, count(*) OVER() AS total
		FROM aggregates
		WHERE collection = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, collection, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []repository.Document
	var total int

	for rows.Next() {
		var doc repository.Document
		if err := rows.Scan(&doc.Collection, &doc.ID, &doc.Version, &doc.Data, &doc.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, total, nil
}

// execTx is a small helper for the typed repositories below that need a
// transaction spanning multiple statements.
func execTx(ctx context.Context, pool database.DBTX, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
