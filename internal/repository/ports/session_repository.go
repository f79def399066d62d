package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
)

// SessionRepository looks sessions up by the bearer token presented by the
// client. Implementations decide how the token is stored.
type SessionRepository interface {
	CreateSession(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*domain.Session, error)
	// DeactivateSession is idempotent; revoking an unknown token is not an error.
	DeactivateSession(ctx context.Context, token string) error
	// FindActiveSession returns sql.ErrNoRows for unknown, revoked or expired tokens.
	FindActiveSession(ctx context.Context, token string) (*domain.Session, error)
}
