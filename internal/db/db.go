package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(dbURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)

	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 5

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)

	if err != nil {
		return nil, err
	}

	err = pool.Ping(ctx)

	if err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// Migrate applies the schema idempotently at startup. The service owns its
// whole schema; there is no external migration tooling to coordinate with.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			email           TEXT NOT NULL,
			username        TEXT NOT NULL,
			password_hash   TEXT NOT NULL,
			email_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			failed_attempts INT NOT NULL DEFAULT 0,
			lockout_until   TIMESTAMPTZ,
			created_at      TIMESTAMPTZ NOT NULL,
			updated_at      TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_unique ON users (LOWER(email))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_username_unique ON users (username)`,
		`CREATE TABLE IF NOT EXISTS roles (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS user_roles (
			user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			role_id TEXT NOT NULL REFERENCES roles (id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, role_id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
