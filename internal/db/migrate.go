package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema idempotently on startup. Statements only add,
// never drop, so running it against an existing database is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id                 TEXT PRIMARY KEY,
			email              TEXT NOT NULL UNIQUE,
			password_hash      TEXT,
			name               TEXT NOT NULL DEFAULT '',
			role               TEXT NOT NULL DEFAULT 'user',
			provider           TEXT,
			reset_token        TEXT,
			reset_token_expiry TIMESTAMPTZ,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_reset_token_idx
			ON users (reset_token) WHERE reset_token IS NOT NULL`,

		`CREATE TABLE IF NOT EXISTS audit_logs (
			id          TEXT PRIMARY KEY,
			"timestamp" TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			"user"      TEXT NOT NULL,
			action      TEXT NOT NULL,
			details     TEXT NOT NULL DEFAULT '',
			severity    TEXT NOT NULL DEFAULT 'low',
			ip_address  TEXT NOT NULL DEFAULT '',
			user_agent  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS audit_logs_ts_id_idx
			ON audit_logs ("timestamp" DESC, id DESC)`,

		`CREATE TABLE IF NOT EXISTS jobs (
			id              TEXT PRIMARY KEY,
			type            TEXT NOT NULL,
			payload         JSONB NOT NULL,
			status          TEXT NOT NULL DEFAULT 'pending',
			attempts        INT NOT NULL DEFAULT 0,
			max_attempts    INT NOT NULL DEFAULT 5,
			run_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			locked_at       TIMESTAMPTZ,
			locked_by       TEXT,
			last_error      TEXT,
			idempotency_key TEXT UNIQUE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS jobs_claim_idx
			ON jobs (status, run_at) WHERE status = 'pending'`,
	}

	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			return err
		}
	}

	return nil
}
