package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pricearb/backend/internal/domain/user"
	"github.com/pricearb/backend/internal/observability"
	"github.com/pricearb/backend/internal/security"
)

// UsersRepo is the Postgres credential store. Lockout bookkeeping runs inside
// a row-locked transaction, so the database is the serialization point for
// concurrent logins against the same account.
type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom

	maxAttempts int
	lockout     time.Duration
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom, maxAttempts int, lockout time.Duration) *UsersRepo {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if lockout <= 0 {
		lockout = 5 * time.Minute
	}

	return &UsersRepo{
		pool:        pool,
		prom:        prom,
		maxAttempts: maxAttempts,
		lockout:     lockout,
	}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

const userColumns = `id, email, username, password_hash, email_confirmed, failed_attempts, lockout_until, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.EmailConfirmed,
		&u.FailedAttempts,
		&u.LockoutUntil,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.find_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`,
			email,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.find_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) FindByUsername(ctx context.Context, username string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.find_by_username", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE username = $1`,
			username,
		))
		return err
	})

	return u, err
}

// Create hashes the password and inserts the user. The unique indexes on
// email and username are the authoritative uniqueness gate; a concurrent
// duplicate that slipped past the service pre-checks fails here with 23505.
func (r *UsersRepo) Create(ctx context.Context, email, username, password string) (user.User, error) {
	if err := security.ValidatePasswordStrength(password); err != nil {
		return user.User{}, err
	}

	hash, err := security.HashPassword(password)

	if err != nil {
		return user.User{}, err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:             uuid.NewString(),
		Email:          email,
		Username:       username,
		PasswordHash:   hash,
		EmailConfirmed: false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, username, password_hash, email_confirmed, failed_attempts, lockout_until, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, 0, NULL, $6, $7)`,
			u.ID, u.Email, u.Username, u.PasswordHash, u.EmailConfirmed, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "username") {
				return user.User{}, user.ErrUsernameTaken
			}
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

// VerifyPasswordWithLockout checks the password and maintains the failure
// counter under a FOR UPDATE row lock. Crossing the threshold stamps
// lockout_until; a success resets the counter.
func (r *UsersRepo) VerifyPasswordWithLockout(ctx context.Context, userID, password string) error {
	return r.observe("users.verify_password", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		var hash string
		var failed int
		var lockoutUntil *time.Time

		err = tx.QueryRow(ctx, `
			SELECT password_hash, failed_attempts, lockout_until
			FROM users
			WHERE id = $1
			FOR UPDATE
		`, userID).Scan(&hash, &failed, &lockoutUntil)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return user.ErrNotFound
			}
			return err
		}

		now := time.Now().UTC()

		if lockoutUntil != nil && now.Before(*lockoutUntil) {
			return user.ErrLockedOut
		}

		if err := security.CheckPassword(hash, password); err != nil {
			failed++

			if failed >= r.maxAttempts {
				until := now.Add(r.lockout)

				_, err = tx.Exec(ctx, `
					UPDATE users
					SET failed_attempts = 0, lockout_until = $2, updated_at = $3
					WHERE id = $1
				`, userID, until, now)

				if err != nil {
					return err
				}

				if err := tx.Commit(ctx); err != nil {
					return err
				}

				return user.ErrLockedOut
			}

			_, err = tx.Exec(ctx, `
				UPDATE users
				SET failed_attempts = $2, updated_at = $3
				WHERE id = $1
			`, userID, failed, now)

			if err != nil {
				return err
			}

			if err := tx.Commit(ctx); err != nil {
				return err
			}

			return user.ErrInvalidCredentials
		}

		_, err = tx.Exec(ctx, `
			UPDATE users
			SET failed_attempts = 0, lockout_until = NULL, updated_at = $2
			WHERE id = $1
		`, userID, now)

		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
}

func (r *UsersRepo) GetRoles(ctx context.Context, userID string) ([]string, error) {
	var roles []string

	err := r.observe("users.get_roles", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT r.name
			FROM roles r
			JOIN user_roles ur ON ur.role_id = r.id
			WHERE ur.user_id = $1
			ORDER BY r.name
		`, userID)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var name string

			if err := rows.Scan(&name); err != nil {
				return err
			}

			roles = append(roles, name)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	if roles == nil {
		roles = []string{}
	}

	return roles, nil
}

func (r *UsersRepo) AddToRole(ctx context.Context, userID, role string) error {
	return r.observe("users.add_to_role", func() error {
		tag, err := r.pool.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			SELECT $1, r.id FROM roles r WHERE r.name = $2
			ON CONFLICT DO NOTHING
		`, userID, role)

		if err != nil {
			return err
		}

		// zero rows means the role itself is missing from the seed data
		if tag.RowsAffected() == 0 {
			var exists bool

			err = r.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = (SELECT id FROM roles WHERE name = $2))`,
				userID, role,
			).Scan(&exists)

			if err != nil {
				return err
			}

			if !exists {
				return errors.New("unknown role: " + role)
			}
		}

		return nil
	})
}

// ListUsers backs the admin surface. Plain offset pagination is fine at this
// table's size.
func (r *UsersRepo) ListUsers(ctx context.Context, limit, offset int) ([]user.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var users []user.User

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)

			if err != nil {
				return err
			}

			users = append(users, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return users, nil
}
