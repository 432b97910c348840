package user

import (
	"errors"
	"time"
)

// Fixed role set, provisioned at bootstrap. Registration only ever assigns RoleUser.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

var (
	ErrNotFound = errors.New("user not found")

	// ErrAuthFailed covers wrong password, unknown email and active lockout.
	// Callers must not be able to tell those apart.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRegistrationFailed covers email/username conflicts and store-level
	// rejections. Same information-hiding rule as ErrAuthFailed.
	ErrRegistrationFailed = errors.New("registration failed")

	// Internal diagnostics only. These never cross the service boundary;
	// they exist so the log can tell a lockout from a bad password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLockedOut          = errors.New("account locked out")

	ErrEmailTaken    = errors.New("email already in use")
	ErrUsernameTaken = errors.New("username already in use")
)

type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Username       string     `json:"userName"`
	PasswordHash   string     `json:"-"` // never expose hash in JSON
	EmailConfirmed bool       `json:"emailConfirmed"`
	FailedAttempts int        `json:"-"`
	LockoutUntil   *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// LockedOut reports whether the account is inside an active lockout window.
// Lockout is a time-gated predicate, not a stored state flip: once now passes
// LockoutUntil the account is usable again without any write.
func (u User) LockedOut(now time.Time) bool {
	return u.LockoutUntil != nil && now.Before(*u.LockoutUntil)
}

// AuthResult is the ephemeral outcome of a successful login or registration.
// It is never persisted; a fresh one is built per call so the embedded roles
// always reflect store state at issuance time.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Username  string    `json:"userName"`
	Roles     []string  `json:"roles"`
}

// Info is the read-only profile returned by the "current user" lookup.
type Info struct {
	UserID         string   `json:"userId"`
	Email          string   `json:"email"`
	Username       string   `json:"userName"`
	Roles          []string `json:"roles"`
	EmailConfirmed bool     `json:"emailConfirmed"`
}
