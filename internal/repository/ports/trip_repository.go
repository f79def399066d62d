package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
)

// TripRepository fronts the two transactional save procedures plus the reads
// and row deletes of the trip cascade.
type TripRepository interface {
	// CreateWithRelations persists the whole tree atomically and returns the new trip id.
	CreateWithRelations(ctx context.Context, payload domain.TripPayload) (uuid.UUID, error)
	// UpdateWithRelations applies the payload to an existing trip atomically and
	// returns the URLs of the media rows it removed.
	UpdateWithRelations(ctx context.Context, tripID uuid.UUID, payload domain.TripPayload) ([]string, error)

	List(ctx context.Context, limit, offset int) ([]domain.TripRecord, error)
	FindByID(ctx context.Context, tripID uuid.UUID) (*domain.TripRecord, error)

	ListDayIDs(ctx context.Context, tripID uuid.UUID) ([]uuid.UUID, error)
	FindCoverImage(ctx context.Context, tripID uuid.UUID) (*domain.MediaRef, error)
	ListMediaURLsByDayIDs(ctx context.Context, dayIDs []uuid.UUID) ([]domain.MediaRef, error)
	DeleteDayChildren(ctx context.Context, dayIDs []uuid.UUID) error
	DeleteDays(ctx context.Context, tripID uuid.UUID) error
	DeleteTrip(ctx context.Context, tripID uuid.UUID) error
}
