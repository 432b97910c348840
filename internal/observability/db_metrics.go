package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pricearb/backend/internal/domain/user"
)

// Credential store operations legitimately fail with domain outcomes (wrong
// password, missing user, taken email). Those are counted as "rejected", not
// as database errors; only infrastructure failures feed DbErrorsTotal.
var domainOutcomes = []error{
	user.ErrNotFound,
	user.ErrInvalidCredentials,
	user.ErrLockedOut,
	user.ErrEmailTaken,
	user.ErrUsernameTaken,
}

// ObserveDB times one logical store operation (users.create,
// users.verify_password, ...) and classifies its result.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"

	if err != nil {
		if isDomainOutcome(err) {
			status = "rejected"
		} else {
			status = "error"
			p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
		}
	}

	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())

	return err
}

func isDomainOutcome(err error) bool {
	for _, sentinel := range domainOutcomes {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "23503":
			// user_roles references users and roles
			return "foreign_key_violation"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	default:
		return "unknown"
	}
}
