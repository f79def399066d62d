package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/media"
	"github.com/rrrobertsson/airmango-admin-panel/internal/metrics"
	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/ports"
)

// TripDeleteService removes a trip with everything hanging off it.
type TripDeleteService struct {
	trips   ports.TripRepository
	storage ports.ObjectStorage
	buckets TripBuckets
	metrics *metrics.TripMetrics
}

func NewTripDeleteService(trips ports.TripRepository, storage ports.ObjectStorage, buckets TripBuckets, m *metrics.TripMetrics) *TripDeleteService {
	return &TripDeleteService{trips: trips, storage: storage, buckets: buckets.withDefaults(), metrics: m}
}

// Delete cascades in a fixed order: storage objects of the day media and the
// cover, then the media and entity rows, then the days, then the trip row.
// Storage removal failures are logged and do not stop the cascade. A failing
// row delete stops it and is returned; it is not retried.
func (s *TripDeleteService) Delete(ctx context.Context, tripID uuid.UUID) (err error) {
	log := zerolog.Ctx(ctx).With().Str("trip_id", tripID.String()).Logger()
	defer func() { s.metrics.ObserveDelete(err) }()

	var (
		dayIDs []uuid.UUID
		cover  *domain.MediaRef
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := s.trips.ListDayIDs(gctx, tripID)
		if err != nil {
			return fmt.Errorf("list days: %w", err)
		}
		dayIDs = ids
		return nil
	})
	g.Go(func() error {
		ref, err := s.trips.FindCoverImage(gctx, tripID)
		if err != nil {
			return fmt.Errorf("find cover: %w", err)
		}
		cover = ref
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTripNotFound
		}
		return fmt.Errorf("%w: %w", ErrTripDelete, err)
	}

	var refs []domain.MediaRef
	if len(dayIDs) > 0 {
		refs, err = s.trips.ListMediaURLsByDayIDs(ctx, dayIDs)
		if err != nil {
			return fmt.Errorf("%w: list media: %w", ErrTripDelete, err)
		}
	}

	groups := make(map[string][]string, 2)
	for _, ref := range refs {
		if path, ok := media.StoragePath(ref, s.buckets.DayMedia); ok {
			groups[s.buckets.DayMedia] = append(groups[s.buckets.DayMedia], path)
		}
	}
	if cover != nil {
		if path, ok := media.StoragePath(*cover, s.buckets.Covers); ok {
			groups[s.buckets.Covers] = append(groups[s.buckets.Covers], path)
		}
	}
	for _, failure := range removeObjectBatches(context.WithoutCancel(ctx), s.storage, groups) {
		s.metrics.IncCleanupFailure("delete")
		log.Error().Err(failure).Msg("trip media removal failed")
	}

	if len(dayIDs) > 0 {
		if err := s.trips.DeleteDayChildren(ctx, dayIDs); err != nil {
			return fmt.Errorf("%w: delete day children: %w", ErrTripDelete, err)
		}
		if err := s.trips.DeleteDays(ctx, tripID); err != nil {
			return fmt.Errorf("%w: delete days: %w", ErrTripDelete, err)
		}
	}
	if err := s.trips.DeleteTrip(ctx, tripID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTripNotFound
		}
		return fmt.Errorf("%w: delete trip: %w", ErrTripDelete, err)
	}

	log.Info().
		Int("days", len(dayIDs)).
		Int("media", len(refs)).
		Msg("trip deleted")
	return nil
}
