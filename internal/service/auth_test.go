package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pricearb/backend/internal/auth"
	"github.com/pricearb/backend/internal/domain/user"
	"github.com/pricearb/backend/internal/repo/memory"
	"github.com/pricearb/backend/internal/service"
)

// fakeStore lets individual tests override just the calls they care about.
type fakeStore struct {
	findByEmail    func(ctx context.Context, email string) (user.User, error)
	findByID       func(ctx context.Context, id string) (user.User, error)
	findByUsername func(ctx context.Context, username string) (user.User, error)
	create         func(ctx context.Context, email, username, password string) (user.User, error)
	verify         func(ctx context.Context, userID, password string) error
	getRoles       func(ctx context.Context, userID string) ([]string, error)
	addToRole      func(ctx context.Context, userID, role string) error
}

func (f *fakeStore) FindByEmail(ctx context.Context, email string) (user.User, error) {
	if f.findByEmail != nil {
		return f.findByEmail(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeStore) FindByID(ctx context.Context, id string) (user.User, error) {
	if f.findByID != nil {
		return f.findByID(ctx, id)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeStore) FindByUsername(ctx context.Context, username string) (user.User, error) {
	if f.findByUsername != nil {
		return f.findByUsername(ctx, username)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeStore) Create(ctx context.Context, email, username, password string) (user.User, error) {
	if f.create != nil {
		return f.create(ctx, email, username, password)
	}
	return user.User{}, errors.New("create not configured")
}

func (f *fakeStore) VerifyPasswordWithLockout(ctx context.Context, userID, password string) error {
	if f.verify != nil {
		return f.verify(ctx, userID, password)
	}
	return nil
}

func (f *fakeStore) GetRoles(ctx context.Context, userID string) ([]string, error) {
	if f.getRoles != nil {
		return f.getRoles(ctx, userID)
	}
	return []string{user.RoleUser}, nil
}

func (f *fakeStore) AddToRole(ctx context.Context, userID, role string) error {
	if f.addToRole != nil {
		return f.addToRole(ctx, userID, role)
	}
	return nil
}

const (
	maxAttempts = 5
	lockoutFor  = 5 * time.Minute
	tokenTTL    = time.Hour
)

// newEnv wires the service to the in-memory store and a real token manager.
func newEnv(t *testing.T) (*service.AuthService, *memory.UsersRepo, *auth.Manager) {
	t.Helper()

	store := memory.NewUsersRepo(maxAttempts, lockoutFor)
	tokens := auth.NewManager("unit-test-secret-with-plenty-of-length", "PriceArbitrageAPI", "PriceArbitrageClient", tokenTTL)
	svc := service.NewAuthService(store, tokens, nil)

	return svc, store, tokens
}

func TestRegisterAssignsUserRoleAndIssuesToken(t *testing.T) {
	svc, _, tokens := newEnv(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "a@x.com", "alice", "Abc12345!")

	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if res.UserID == "" {
		t.Fatal("Register returned empty user id")
	}
	if res.Email != "a@x.com" || res.Username != "alice" {
		t.Errorf("identity = %q/%q, want a@x.com/alice", res.Email, res.Username)
	}

	if len(res.Roles) != 1 || res.Roles[0] != user.RoleUser {
		t.Errorf("roles = %v, want [User]", res.Roles)
	}

	claims, err := tokens.VerifyAccessToken(res.Token)

	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}

	if claims.Subject != res.UserID {
		t.Errorf("token subject = %q, want %q", claims.Subject, res.UserID)
	}
}

func TestRegisterDuplicateEmailFailsUniformly(t *testing.T) {
	svc, store, _ := newEnv(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "alice", "Abc12345!"); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	_, err := svc.Register(ctx, "A@X.COM", "alice2", "Abc12345!")

	if !errors.Is(err, user.ErrRegistrationFailed) {
		t.Fatalf("duplicate email Register = %v, want ErrRegistrationFailed", err)
	}

	// no second user sneaks in
	if _, err := store.FindByUsername(ctx, "alice2"); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("FindByUsername(alice2) = %v, want ErrNotFound", err)
	}
}

func TestRegisterDuplicateUsernameFailsUniformly(t *testing.T) {
	svc, _, _ := newEnv(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "alice", "Abc12345!"); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	_, err := svc.Register(ctx, "b@x.com", "alice", "Abc12345!")

	if !errors.Is(err, user.ErrRegistrationFailed) {
		t.Fatalf("duplicate username Register = %v, want ErrRegistrationFailed", err)
	}
}

func TestRegisterWeakPasswordFailsUniformly(t *testing.T) {
	svc, _, _ := newEnv(t)

	_, err := svc.Register(context.Background(), "a@x.com", "alice", "alllowercase1")

	if !errors.Is(err, user.ErrRegistrationFailed) {
		t.Fatalf("weak password Register = %v, want ErrRegistrationFailed", err)
	}
}

func TestRegisterStoreErrorFailsUniformly(t *testing.T) {
	store := &fakeStore{
		findByEmail: func(context.Context, string) (user.User, error) {
			return user.User{}, errors.New("connection refused")
		},
	}
	tokens := auth.NewManager("unit-test-secret-with-plenty-of-length", "i", "a", tokenTTL)
	svc := service.NewAuthService(store, tokens, nil)

	_, err := svc.Register(context.Background(), "a@x.com", "alice", "Abc12345!")

	if !errors.Is(err, user.ErrRegistrationFailed) {
		t.Fatalf("Register with failing store = %v, want ErrRegistrationFailed", err)
	}
}

func TestLoginSuccessReturnsTokenWithExpectedExpiry(t *testing.T) {
	svc, _, _ := newEnv(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "alice", "Abc12345!"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	res, err := svc.Login(ctx, "a@x.com", "Abc12345!")

	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	want := time.Now().UTC().Add(tokenTTL)
	if diff := res.ExpiresAt.Sub(want); diff > 5*time.Second || diff < -5*time.Second {
		t.Errorf("ExpiresAt = %v, want ~%v", res.ExpiresAt, want)
	}
}

func TestLoginUnknownEmailAndWrongPasswordLookAlike(t *testing.T) {
	svc, _, _ := newEnv(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "alice", "Abc12345!"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	_, errUnknown := svc.Login(ctx, "nobody@x.com", "Abc12345!")
	_, errWrong := svc.Login(ctx, "a@x.com", "Wrong12345!")

	if !errors.Is(errUnknown, user.ErrAuthFailed) {
		t.Errorf("unknown email Login = %v, want ErrAuthFailed", errUnknown)
	}
	if !errors.Is(errWrong, user.ErrAuthFailed) {
		t.Errorf("wrong password Login = %v, want ErrAuthFailed", errWrong)
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	svc, store, _ := newEnv(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return base }

	res, err := svc.Register(ctx, "a@x.com", "alice", "Abc12345!")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	for i := 0; i < maxAttempts; i++ {
		if _, err := svc.Login(ctx, "a@x.com", "Wrong12345!"); !errors.Is(err, user.ErrAuthFailed) {
			t.Fatalf("failed attempt %d = %v, want ErrAuthFailed", i+1, err)
		}
	}

	// locked now, even with the correct password
	if _, err := svc.Login(ctx, "a@x.com", "Abc12345!"); !errors.Is(err, user.ErrAuthFailed) {
		t.Fatalf("Login during lockout = %v, want ErrAuthFailed", err)
	}

	// still locked one second before the window closes
	store.Now = func() time.Time { return base.Add(lockoutFor - time.Second) }
	if _, err := svc.Login(ctx, "a@x.com", "Abc12345!"); !errors.Is(err, user.ErrAuthFailed) {
		t.Fatalf("Login just before lockout expiry = %v, want ErrAuthFailed", err)
	}

	// once the window elapses the correct password works again
	store.Now = func() time.Time { return base.Add(lockoutFor + time.Second) }
	if _, err := svc.Login(ctx, "a@x.com", "Abc12345!"); err != nil {
		t.Fatalf("Login after lockout expiry = %v, want success", err)
	}

	u, err := store.FindByID(ctx, res.UserID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if u.FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d after successful login, want 0", u.FailedAttempts)
	}
	if u.LockoutUntil != nil {
		t.Errorf("LockoutUntil = %v after successful login, want nil", u.LockoutUntil)
	}
}

func TestLoginSuccessResetsFailureCounter(t *testing.T) {
	svc, store, _ := newEnv(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "a@x.com", "alice", "Abc12345!")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	// a few failures, but short of the threshold
	for i := 0; i < maxAttempts-1; i++ {
		if _, err := svc.Login(ctx, "a@x.com", "Wrong12345!"); !errors.Is(err, user.ErrAuthFailed) {
			t.Fatalf("failed attempt %d = %v, want ErrAuthFailed", i+1, err)
		}
	}

	if _, err := svc.Login(ctx, "a@x.com", "Abc12345!"); err != nil {
		t.Fatalf("Login with correct password = %v, want success", err)
	}

	u, err := store.FindByID(ctx, res.UserID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if u.FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d, want 0", u.FailedAttempts)
	}

	// counter starts from scratch: the next wrong password does not lock
	if _, err := svc.Login(ctx, "a@x.com", "Wrong12345!"); !errors.Is(err, user.ErrAuthFailed) {
		t.Fatalf("post-reset failed attempt = %v, want ErrAuthFailed", err)
	}
	if _, err := svc.Login(ctx, "a@x.com", "Abc12345!"); err != nil {
		t.Fatalf("Login after single failure = %v, want success", err)
	}
}

func TestLoginTokenReflectsCurrentRoles(t *testing.T) {
	svc, store, tokens := newEnv(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "a@x.com", "alice", "Abc12345!")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if err := store.AddToRole(ctx, res.UserID, user.RoleAdmin); err != nil {
		t.Fatalf("AddToRole returned error: %v", err)
	}

	res2, err := svc.Login(ctx, "a@x.com", "Abc12345!")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	claims, err := tokens.VerifyAccessToken(res2.Token)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}

	seen := map[string]bool{}
	for _, r := range claims.Roles {
		seen[r] = true
	}
	if !seen[user.RoleUser] || !seen[user.RoleAdmin] {
		t.Errorf("token roles = %v, want both User and Admin", claims.Roles)
	}
}

func TestGetCurrentUser(t *testing.T) {
	svc, _, _ := newEnv(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "a@x.com", "alice", "Abc12345!")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	info, err := svc.GetCurrentUser(ctx, res.UserID)

	if err != nil {
		t.Fatalf("GetCurrentUser returned error: %v", err)
	}

	if info.UserID != res.UserID || info.Email != "a@x.com" || info.Username != "alice" {
		t.Errorf("info = %+v, want registered identity", info)
	}
	if len(info.Roles) != 1 || info.Roles[0] != user.RoleUser {
		t.Errorf("info roles = %v, want [User]", info.Roles)
	}

	if _, err := svc.GetCurrentUser(ctx, "does-not-exist"); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("GetCurrentUser(unknown) = %v, want ErrNotFound", err)
	}
}

func TestGetCurrentUserMapsStoreErrorsToNotFound(t *testing.T) {
	store := &fakeStore{
		findByID: func(context.Context, string) (user.User, error) {
			return user.User{}, errors.New("connection refused")
		},
	}
	tokens := auth.NewManager("unit-test-secret-with-plenty-of-length", "i", "a", tokenTTL)
	svc := service.NewAuthService(store, tokens, nil)

	_, err := svc.GetCurrentUser(context.Background(), "some-id")

	if !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("GetCurrentUser with failing store = %v, want ErrNotFound", err)
	}
}
