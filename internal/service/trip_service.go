package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/ports"
)

const (
	defaultTripLimit = 50
	maxTripLimit     = 200
)

// TripService serves trip reads.
type TripService struct {
	trips ports.TripRepository
}

func NewTripService(trips ports.TripRepository) *TripService {
	return &TripService{trips: trips}
}

// List returns trips newest first, each with its ordered days.
func (s *TripService) List(ctx context.Context, limit, offset int) ([]domain.TripRecord, error) {
	if limit <= 0 {
		limit = defaultTripLimit
	}
	if limit > maxTripLimit {
		limit = maxTripLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.trips.List(ctx, limit, offset)
}

func (s *TripService) Get(ctx context.Context, id uuid.UUID) (*domain.TripRecord, error) {
	trip, err := s.trips.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}
