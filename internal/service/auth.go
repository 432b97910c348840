package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pricearb/backend/internal/domain/user"
)

// CredentialStore is the persistence capability the auth service needs.
// Password hashing, verification and lockout bookkeeping live behind it so
// the service can be tested against an in-memory implementation.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
	FindByUsername(ctx context.Context, username string) (user.User, error)
	Create(ctx context.Context, email, username, password string) (user.User, error)
	VerifyPasswordWithLockout(ctx context.Context, userID, password string) error
	GetRoles(ctx context.Context, userID string) ([]string, error)
	AddToRole(ctx context.Context, userID, role string) error
}

type TokenIssuer interface {
	Issue(userID, email, username string, roles []string) (token string, expiresAt time.Time, err error)
}

type AuthService struct {
	store  CredentialStore
	tokens TokenIssuer
	log    *slog.Logger
}

func NewAuthService(store CredentialStore, tokens TokenIssuer, log *slog.Logger) *AuthService {
	if log == nil {
		log = slog.Default()
	}

	return &AuthService{
		store:  store,
		tokens: tokens,
		log:    log,
	}
}

// Register creates a user with the default "User" role and returns a fresh
// AuthResult. Every failure surfaces as ErrRegistrationFailed so the caller
// cannot tell which field collided; the real reason only goes to the log.
//
// The pre-checks are best effort. Under a concurrent identical registration
// both requests can pass them, so the store's Create is the authoritative
// uniqueness gate and its conflict error gets the same uniform treatment.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (user.AuthResult, error) {
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		s.log.WarnContext(ctx, "registration rejected: email already in use", "email", email)
		return user.AuthResult{}, user.ErrRegistrationFailed
	} else if !errors.Is(err, user.ErrNotFound) {
		s.log.ErrorContext(ctx, "registration email lookup failed", "err", err)
		return user.AuthResult{}, user.ErrRegistrationFailed
	}

	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		s.log.WarnContext(ctx, "registration rejected: username already in use", "username", username)
		return user.AuthResult{}, user.ErrRegistrationFailed
	} else if !errors.Is(err, user.ErrNotFound) {
		s.log.ErrorContext(ctx, "registration username lookup failed", "err", err)
		return user.AuthResult{}, user.ErrRegistrationFailed
	}

	u, err := s.store.Create(ctx, email, username, password)

	if err != nil {
		s.log.WarnContext(ctx, "user creation failed", "email", email, "err", err)
		return user.AuthResult{}, user.ErrRegistrationFailed
	}

	if err := s.store.AddToRole(ctx, u.ID, user.RoleUser); err != nil {
		s.log.ErrorContext(ctx, "default role assignment failed", "user_id", u.ID, "err", err)
		return user.AuthResult{}, user.ErrRegistrationFailed
	}

	res, err := s.issueFor(ctx, u)

	if err != nil {
		return user.AuthResult{}, user.ErrRegistrationFailed
	}

	s.log.InfoContext(ctx, "user registered", "user_id", u.ID, "email", u.Email)

	return res, nil
}

// Login verifies the password with lockout bookkeeping enabled and returns a
// fresh AuthResult. Unknown email, wrong password and active lockout all come
// back as ErrAuthFailed; only the log distinguishes them.
func (s *AuthService) Login(ctx context.Context, email, password string) (user.AuthResult, error) {
	u, err := s.store.FindByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.log.WarnContext(ctx, "login failed: unknown email", "email", email)
		} else {
			s.log.ErrorContext(ctx, "login email lookup failed", "err", err)
		}
		return user.AuthResult{}, user.ErrAuthFailed
	}

	if err := s.store.VerifyPasswordWithLockout(ctx, u.ID, password); err != nil {
		switch {
		case errors.Is(err, user.ErrLockedOut):
			s.log.WarnContext(ctx, "login failed: account locked out", "user_id", u.ID)
		case errors.Is(err, user.ErrInvalidCredentials):
			s.log.WarnContext(ctx, "login failed: wrong password", "user_id", u.ID)
		default:
			s.log.ErrorContext(ctx, "password verification failed", "user_id", u.ID, "err", err)
		}
		return user.AuthResult{}, user.ErrAuthFailed
	}

	res, err := s.issueFor(ctx, u)

	if err != nil {
		return user.AuthResult{}, user.ErrAuthFailed
	}

	s.log.InfoContext(ctx, "user logged in", "user_id", u.ID)

	return res, nil
}

// GetCurrentUser is a read-only profile lookup. No side effects.
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (user.Info, error) {
	u, err := s.store.FindByID(ctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.Info{}, user.ErrNotFound
		}

		s.log.ErrorContext(ctx, "current user lookup failed", "user_id", userID, "err", err)
		return user.Info{}, user.ErrNotFound
	}

	roles, err := s.store.GetRoles(ctx, u.ID)

	if err != nil {
		s.log.ErrorContext(ctx, "role lookup failed", "user_id", u.ID, "err", err)
		return user.Info{}, user.ErrNotFound
	}

	return user.Info{
		UserID:         u.ID,
		Email:          u.Email,
		Username:       u.Username,
		Roles:          roles,
		EmailConfirmed: u.EmailConfirmed,
	}, nil
}

// issueFor reads the roles fresh from the store and signs a token for them.
// Roles are never cached: the claims must reflect store state at issuance.
func (s *AuthService) issueFor(ctx context.Context, u user.User) (user.AuthResult, error) {
	roles, err := s.store.GetRoles(ctx, u.ID)

	if err != nil {
		s.log.ErrorContext(ctx, "role lookup failed", "user_id", u.ID, "err", err)
		return user.AuthResult{}, err
	}

	token, expiresAt, err := s.tokens.Issue(u.ID, u.Email, u.Username, roles)

	if err != nil {
		s.log.ErrorContext(ctx, "token issuance failed", "user_id", u.ID, "err", err)
		return user.AuthResult{}, err
	}

	return user.AuthResult{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Roles:     roles,
	}, nil
}
