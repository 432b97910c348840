package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pricearb/backend/internal/domain/user"
	"github.com/pricearb/backend/internal/security"
)

// UsersRepo is an in-memory credential store. It backs the unit tests and
// lets the API run without Postgres in dev mode. The lockout bookkeeping
// matches the Postgres implementation.
type UsersRepo struct {
	mu    sync.RWMutex
	users map[string]*user.User // keyed by id
	roles map[string][]string   // user id -> role names

	maxAttempts int
	lockout     time.Duration

	// Now is swappable so tests can move past a lockout window.
	Now func() time.Time
}

func NewUsersRepo(maxAttempts int, lockout time.Duration) *UsersRepo {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if lockout <= 0 {
		lockout = 5 * time.Minute
	}

	return &UsersRepo{
		users:       make(map[string]*user.User),
		roles:       make(map[string][]string),
		maxAttempts: maxAttempts,
		lockout:     lockout,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

func (r *UsersRepo) FindByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return *u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) FindByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return *u, nil
}

func (r *UsersRepo) FindByUsername(_ context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			return *u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) Create(_ context.Context, email, username, password string) (user.User, error) {
	if err := security.ValidatePasswordStrength(password); err != nil {
		return user.User{}, err
	}

	hash, err := security.HashPassword(password)

	if err != nil {
		return user.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// final uniqueness gate, same role the DB constraint plays in Postgres
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return user.User{}, user.ErrEmailTaken
		}
		if u.Username == username {
			return user.User{}, user.ErrUsernameTaken
		}
	}

	now := r.Now()

	u := &user.User{
		ID:             uuid.NewString(),
		Email:          email,
		Username:       username,
		PasswordHash:   hash,
		EmailConfirmed: false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	r.users[u.ID] = u

	return *u, nil
}

func (r *UsersRepo) VerifyPasswordWithLockout(_ context.Context, userID, password string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]

	if !ok {
		return user.ErrNotFound
	}

	now := r.Now()

	if u.LockedOut(now) {
		return user.ErrLockedOut
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		u.FailedAttempts++

		if u.FailedAttempts >= r.maxAttempts {
			until := now.Add(r.lockout)
			u.LockoutUntil = &until
			u.FailedAttempts = 0
			u.UpdatedAt = now
			return user.ErrLockedOut
		}

		u.UpdatedAt = now
		return user.ErrInvalidCredentials
	}

	// success resets the counter and clears any stale lockout timestamp
	u.FailedAttempts = 0
	u.LockoutUntil = nil
	u.UpdatedAt = now

	return nil
}

func (r *UsersRepo) GetRoles(_ context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.users[userID]; !ok {
		return nil, user.ErrNotFound
	}

	roles := r.roles[userID]
	out := make([]string, len(roles))
	copy(out, roles)

	return out, nil
}

func (r *UsersRepo) ListUsers(_ context.Context, limit, offset int) ([]user.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]user.User, 0, len(r.users))

	for _, u := range r.users {
		all = append(all, *u)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []user.User{}, nil
	}

	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	return all[offset:end], nil
}

func (r *UsersRepo) AddToRole(_ context.Context, userID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return user.ErrNotFound
	}

	for _, have := range r.roles[userID] {
		if have == role {
			return nil
		}
	}

	r.roles[userID] = append(r.roles[userID], role)

	return nil
}
