package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS quotes (
	quote_number             TEXT PRIMARY KEY,
	sequence                 BIGINT NOT NULL UNIQUE,
	project_ref              TEXT NOT NULL,
	lot_ref                  TEXT NOT NULL DEFAULT '',
	category                 TEXT NOT NULL DEFAULT '',
	contractor_ref           TEXT NOT NULL,
	status                   TEXT NOT NULL,
	line_items               JSONB NOT NULL DEFAULT '[]'::jsonb,
	total_amount             NUMERIC(20, 2) NOT NULL,
	approved_by              TEXT NOT NULL DEFAULT '',
	approved_at              TIMESTAMPTZ,
	rejection_reason         TEXT NOT NULL DEFAULT '',
	customer_acknowledged_by TEXT NOT NULL DEFAULT '',
	customer_acknowledged_at TIMESTAMPTZ,
	version                  BIGINT NOT NULL,
	created_at               TIMESTAMPTZ NOT NULL,
	updated_at               TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS quotes_project_ref_idx ON quotes (project_ref);
CREATE INDEX IF NOT EXISTS quotes_lot_ref_idx ON quotes (lot_ref);
CREATE INDEX IF NOT EXISTS quotes_contractor_ref_idx ON quotes (contractor_ref);
CREATE INDEX IF NOT EXISTS quotes_status_idx ON quotes (status);

CREATE TABLE IF NOT EXISTS quote_counters (
	name  TEXT PRIMARY KEY,
	value BIGINT NOT NULL
);
`

// ApplyPostgresSchema creates the quote tables if they do not exist yet.
func ApplyPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, postgresSchema)
	return err
}
