package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/ports"
)

// SessionRepository stores sessions keyed by a digest of the bearer token;
// the token itself is never written.
type SessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *SessionRepository) CreateSession(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*domain.Session, error) {
	const query = `
        INSERT INTO sessions (user_id, token, expires_at, is_active)
        VALUES ($1, $2, $3, true)
        RETURNING id, user_id, created_at, expires_at, is_active
    `
	var session domain.Session
	if err := r.db.QueryRowxContext(ctx, query, userID, tokenDigest(token), expiresAt).StructScan(&session); err != nil {
		return nil, classify(err)
	}
	session.Token = token
	return &session, nil
}

func (r *SessionRepository) DeactivateSession(ctx context.Context, token string) error {
	const query = `
        UPDATE sessions SET is_active = false, expires_at = NOW()
        WHERE token = $1 AND is_active = true
    `
	_, err := r.db.ExecContext(ctx, query, tokenDigest(token))
	return err
}

func (r *SessionRepository) FindActiveSession(ctx context.Context, token string) (*domain.Session, error) {
	const query = `
        SELECT id, user_id, created_at, expires_at, is_active
        FROM sessions
        WHERE token = $1 AND is_active = true AND expires_at > NOW()
    `
	var session domain.Session
	if err := r.db.GetContext(ctx, &session, query, tokenDigest(token)); err != nil {
		return nil, err
	}
	session.Token = token
	return &session, nil
}

var _ ports.SessionRepository = (*SessionRepository)(nil)
