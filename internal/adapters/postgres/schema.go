package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"hermes/pkg/errors"
)

// EnsureSchema creates the ledger tables when they do not exist yet.
// The schema is small enough that idempotent DDL at startup beats a
// migration tool.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS user_statistics (
			user_id           BIGINT PRIMARY KEY,
			username          TEXT NOT NULL DEFAULT '',
			first_name        TEXT NOT NULL DEFAULT '',
			last_name         TEXT NOT NULL DEFAULT '',
			total_spent       NUMERIC(12, 6) NOT NULL DEFAULT 0,
			total_requests    BIGINT NOT NULL DEFAULT 0,
			last_request_date TIMESTAMPTZ NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS request_history (
			id                UUID PRIMARY KEY,
			user_id           BIGINT NOT NULL REFERENCES user_statistics (user_id),
			generation_id     TEXT NOT NULL DEFAULT '',
			command           TEXT NOT NULL,
			cost              NUMERIC(12, 6) NOT NULL DEFAULT 0,
			model             TEXT NOT NULL DEFAULT '',
			tokens_prompt     INTEGER NOT NULL DEFAULT 0,
			tokens_completion INTEGER NOT NULL DEFAULT 0,
			request_date      TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_request_history_user_date
			ON request_history (user_id, request_date DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "ensure ledger schema")
		}
	}
	return nil
}
