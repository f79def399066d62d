package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is an issued bearer token. Only a digest of Token is persisted; the
// plain token lives in memory for the request that created or presented it.
type Session struct {
	ID        int64     `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Token     string    `db:"-" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	IsActive  bool      `db:"is_active" json:"is_active"`
}

// Remaining is how long the session stays usable after now; zero once revoked
// or expired.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s == nil || !s.IsActive {
		return 0
	}
	return max(s.ExpiresAt.Sub(now), 0)
}
