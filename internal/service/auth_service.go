package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/ports"
	"github.com/rrrobertsson/airmango-admin-panel/internal/upload"
	"github.com/rrrobertsson/airmango-admin-panel/internal/util"
)

// AuthResult is a successful login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService issues and verifies session tokens. Verified identities are
// cached per token so a burst of requests, or an upload batch, costs one
// session lookup.
type AuthService struct {
	users      ports.UserRepository
	sessions   ports.SessionRepository
	jwt        *util.JWTManager
	cacheTTL   time.Duration
	identities *gocache.Cache
	flight     singleflight.Group
	now        func() time.Time
}

// NewAuthService caches verified identities for identityTTL, or less when the
// session expires sooner.
func NewAuthService(users ports.UserRepository, sessions ports.SessionRepository, jwtManager *util.JWTManager, identityTTL time.Duration) *AuthService {
	if identityTTL <= 0 {
		identityTTL = time.Minute
	}
	return &AuthService{
		users:      users,
		sessions:   sessions,
		jwt:        jwtManager,
		cacheTTL:   identityTTL,
		identities: gocache.New(identityTTL, 2*identityTTL),
		now:        time.Now,
	}
}

func (s *AuthService) LoginWithEmail(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !util.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.jwt.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if _, err := s.sessions.CreateSession(ctx, user.ID, token, expiresAt); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	s.identities.Delete(token)
	return s.sessions.DeactivateSession(ctx, token)
}

// Authenticate resolves a bearer token to its user. The token must parse, be
// unexpired, and belong to an active session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}
	if cached, ok := s.identities.Get(token); ok {
		return cached.(*domain.User), nil
	}

	v, err, _ := s.flight.Do(token, func() (any, error) {
		claims, err := s.jwt.Parse(token)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		session, err := s.sessions.FindActiveSession(ctx, token)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrSessionExpired
			}
			return nil, err
		}
		if session.UserID != claims.UserID {
			return nil, ErrSessionExpired
		}
		user, err := s.users.FindByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrUnauthenticated
			}
			return nil, err
		}
		remaining := session.Remaining(s.now())
		if remaining <= 0 {
			return nil, ErrSessionExpired
		}
		s.identities.Set(token, user, min(remaining, s.cacheTTL))
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.User), nil
}

// EnsureAuthenticated verifies the token carried by ctx. The upload batch
// calls it once before fanning out.
func (s *AuthService) EnsureAuthenticated(ctx context.Context) error {
	_, err := s.Authenticate(ctx, upload.BearerToken(ctx))
	return err
}
