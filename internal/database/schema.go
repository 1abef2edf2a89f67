package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, id)
	)`,
	`CREATE TABLE IF NOT EXISTS payment_audits (
		id UUID PRIMARY KEY,
		event_type TEXT NOT NULL,
		event_source TEXT NOT NULL,
		gateway_event_id TEXT,
		payment_id TEXT,
		booking_id TEXT,
		amount NUMERIC(14, 2),
		currency TEXT,
		error_message TEXT,
		user_agent TEXT,
		actor TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_audits_payment_id ON payment_audits (payment_id)`,
}

// EnsureSchema creates the tables used by the document store and audit log
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
