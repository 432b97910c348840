package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pricearb/backend/internal/config"
	"github.com/pricearb/backend/internal/domain/user"
	"github.com/pricearb/backend/internal/security"
)

// EnsureRoles provisions the fixed role set. Roles are bootstrap data only;
// nothing in the public API creates them.
func EnsureRoles(ctx context.Context, pool *pgxpool.Pool) error {
	for _, name := range []string{user.RoleAdmin, user.RoleUser} {
		_, err := pool.Exec(ctx, `
			INSERT INTO roles (id, name)
			VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
		`, uuid.NewString(), name)

		if err != nil {
			return err
		}
	}

	return nil
}

// EnsureAdminUser creates the bootstrap admin account when one is configured
// and missing. No-op otherwise.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	// check if the user exists

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE LOWER(email) = LOWER($1)`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()
	id := uuid.NewString()

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, username, password_hash, email_confirmed, failed_attempts, lockout_until, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, TRUE, 0, NULL, $5, $6)`,
		id, cfg.AdminEmail, cfg.AdminUsername, hash, now, now,
	)

	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id)
		SELECT $1, r.id FROM roles r WHERE r.name = $2
		ON CONFLICT DO NOTHING
	`, id, user.RoleAdmin)

	return err
}

// EnsureSampleUsers provisions the two demo accounts for local development.
// Only ever called in dev mode; the passwords are public knowledge.
func EnsureSampleUsers(ctx context.Context, pool *pgxpool.Pool) error {
	samples := []struct {
		email    string
		username string
		password string
		role     string
	}{
		{"admin@example.com", "admin", "Admin@123", user.RoleAdmin},
		{"user@example.com", "user", "User@123", user.RoleUser},
	}

	for _, s := range samples {
		var dummy string

		err := pool.QueryRow(ctx, `SELECT id FROM users WHERE LOWER(email) = LOWER($1)`, s.email).Scan(&dummy)

		if err == nil {
			continue
		}

		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		hash, err := security.HashPassword(s.password)

		if err != nil {
			return err
		}

		now := time.Now().UTC()
		id := uuid.NewString()

		_, err = pool.Exec(ctx,
			`INSERT INTO users (id, email, username, password_hash, email_confirmed, failed_attempts, lockout_until, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, TRUE, 0, NULL, $5, $6)`,
			id, s.email, s.username, hash, now, now,
		)

		if err != nil {
			return err
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			SELECT $1, r.id FROM roles r WHERE r.name = $2
			ON CONFLICT DO NOTHING
		`, id, s.role)

		if err != nil {
			return err
		}
	}

	return nil
}
