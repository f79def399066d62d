package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/upload"
	"github.com/rrrobertsson/airmango-admin-panel/internal/util"
)

func newAdmin(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, salt, err := util.DerivePassword(password)
	if err != nil {
		t.Fatalf("DerivePassword returned error: %v", err)
	}
	return &domain.User{ID: uuid.New(), Email: "admin@airmango.test", Role: domain.RoleAdmin, PasswordHash: hash, PasswordSalt: salt}
}

func TestLoginWithEmail(t *testing.T) {
	admin := newAdmin(t, "Sup3r-secret!pw")
	users := newFakeUserRepo(admin)
	sessions := newFakeSessionRepo()
	svc := NewAuthService(users, sessions, util.NewJWTManager("secret", time.Hour), time.Minute)

	result, err := svc.LoginWithEmail(context.Background(), "  ADMIN@airmango.test ", "Sup3r-secret!pw")
	if err != nil {
		t.Fatalf("LoginWithEmail returned error: %v", err)
	}
	if result.User.ID != admin.ID || result.Token == "" {
		t.Fatalf("unexpected login result: %+v", result)
	}
	if _, ok := sessions.sessions[result.Token]; !ok {
		t.Fatalf("expected a session to be stored for the token")
	}

	if _, err := svc.LoginWithEmail(context.Background(), admin.Email, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.LoginWithEmail(context.Background(), "nobody@airmango.test", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestAuthenticateCachesIdentity(t *testing.T) {
	admin := newAdmin(t, "pw")
	users := newFakeUserRepo(admin)
	svc := NewAuthService(users, newFakeSessionRepo(), util.NewJWTManager("secret", time.Hour), time.Minute)

	result, err := svc.LoginWithEmail(context.Background(), admin.Email, "pw")
	if err != nil {
		t.Fatalf("LoginWithEmail returned error: %v", err)
	}
	for i := 0; i < 3; i++ {
		user, err := svc.Authenticate(context.Background(), result.Token)
		if err != nil {
			t.Fatalf("Authenticate returned error: %v", err)
		}
		if user.ID != admin.ID {
			t.Fatalf("unexpected user %s", user.ID)
		}
	}
	if users.lookups != 1 {
		t.Fatalf("expected one user lookup, got %d", users.lookups)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	admin := newAdmin(t, "pw")
	svc := NewAuthService(newFakeUserRepo(admin), newFakeSessionRepo(), util.NewJWTManager("secret", time.Hour), time.Minute)

	result, err := svc.LoginWithEmail(context.Background(), admin.Email, "pw")
	if err != nil {
		t.Fatalf("LoginWithEmail returned error: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), result.Token); err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if err := svc.Logout(context.Background(), result.Token); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), result.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired after logout, got %v", err)
	}
}

func TestAuthenticateRejectsForeignToken(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), newFakeSessionRepo(), util.NewJWTManager("secret", time.Hour), time.Minute)
	forged, _, err := util.NewJWTManager("other", time.Hour).Generate(uuid.New(), "x@y.test", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), forged); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for empty token, got %v", err)
	}
}

func TestEnsureAuthenticatedReadsContextToken(t *testing.T) {
	admin := newAdmin(t, "pw")
	svc := NewAuthService(newFakeUserRepo(admin), newFakeSessionRepo(), util.NewJWTManager("secret", time.Hour), time.Minute)
	result, err := svc.LoginWithEmail(context.Background(), admin.Email, "pw")
	if err != nil {
		t.Fatalf("LoginWithEmail returned error: %v", err)
	}

	if err := svc.EnsureAuthenticated(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated without a token, got %v", err)
	}
	ctx := upload.WithBearerToken(context.Background(), result.Token)
	if err := svc.EnsureAuthenticated(ctx); err != nil {
		t.Fatalf("EnsureAuthenticated returned error: %v", err)
	}
}
