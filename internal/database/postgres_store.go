package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresStore implements DocumentStore on a JSONB table
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a document store backed by the documents table
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get loads a document and decodes it into dest
func (s *PostgresStore) Get(ctx context.Context, collection, id string, dest interface{}) error {
	var raw []byte
	query := `SELECT data FROM documents WHERE collection = $1 AND id = $2`

	err := s.db.GetContext(ctx, &raw, query, collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// Set upserts a document. The merge and preserve rules run inside a single
// INSERT ... ON CONFLICT statement so concurrent writers serialise on the row.
func (s *PostgresStore) Set(ctx context.Context, collection, id string, doc interface{}, opts ...SetOption) error {
	o := buildSetOptions(opts)

	fields, err := toFields(doc)
	if err != nil {
		return err
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, id, err)
	}

	preserve := o.Preserve
	if preserve == nil {
		preserve = []string{}
	}

	query := `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW(), NOW())
		ON CONFLICT (collection, id) DO UPDATE SET
			data = (CASE WHEN $4::boolean THEN documents.data ELSE '{}'::jsonb END)
				|| EXCLUDED.data
				|| (documents.data - ARRAY(
					SELECT jsonb_object_keys(documents.data)
					EXCEPT
					SELECT unnest($5::text[])
				)),
			updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, collection, id, string(data), o.Merge, pq.Array(preserve)); err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update merges fields into an existing document
func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	normalised, err := toFields(fields)
	if err != nil {
		return err
	}
	data, err := json.Marshal(normalised)
	if err != nil {
		return fmt.Errorf("failed to encode update for %s/%s: %w", collection, id, err)
	}

	query := `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2`

	result, err := s.db.ExecContext(ctx, query, collection, id, string(data))
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
