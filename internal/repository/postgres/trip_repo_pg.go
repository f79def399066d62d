package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/ports"
)

type TripRepository struct {
	db *sqlx.DB
}

func NewTripRepo(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

func (r *TripRepository) CreateWithRelations(ctx context.Context, payload domain.TripPayload) (uuid.UUID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode trip payload: %w", err)
	}
	var id uuid.UUID
	if err := r.db.QueryRowxContext(ctx, `SELECT create_trip_with_relations($1::jsonb)`, body).Scan(&id); err != nil {
		return uuid.Nil, classify(err)
	}
	return id, nil
}

func (r *TripRepository) UpdateWithRelations(ctx context.Context, tripID uuid.UUID, payload domain.TripPayload) ([]string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode trip payload: %w", err)
	}
	var deleted pq.StringArray
	if err := r.db.QueryRowxContext(ctx, `SELECT update_trip_with_relations($1, $2::jsonb)`, tripID, body).Scan(&deleted); err != nil {
		return nil, classify(err)
	}
	return []string(deleted), nil
}

const tripColumns = `id, title, description, cover_image, user_id, created_at, updated_at`

func (r *TripRepository) List(ctx context.Context, limit, offset int) ([]domain.TripRecord, error) {
	query := `
        SELECT ` + tripColumns + `
        FROM trips
        ORDER BY created_at DESC, id
        LIMIT $1 OFFSET $2
    `
	trips := []domain.TripRecord{}
	if err := r.db.SelectContext(ctx, &trips, query, limit, offset); err != nil {
		return nil, err
	}
	if err := r.attachDays(ctx, trips); err != nil {
		return nil, err
	}
	return trips, nil
}

func (r *TripRepository) FindByID(ctx context.Context, tripID uuid.UUID) (*domain.TripRecord, error) {
	query := `
        SELECT ` + tripColumns + `
        FROM trips
        WHERE id = $1
    `
	var trip domain.TripRecord
	if err := r.db.GetContext(ctx, &trip, query, tripID); err != nil {
		return nil, err
	}
	trips := []domain.TripRecord{trip}
	if err := r.attachDays(ctx, trips); err != nil {
		return nil, err
	}
	return &trips[0], nil
}

// attachDays loads the days of trips with their entities and media in four
// queries, whatever the number of trips.
func (r *TripRepository) attachDays(ctx context.Context, trips []domain.TripRecord) error {
	if len(trips) == 0 {
		return nil
	}
	tripIDs := make([]uuid.UUID, len(trips))
	for i := range trips {
		tripIDs[i] = trips[i].ID
		trips[i].Days = []domain.DayRecord{}
	}

	const dayQuery = `
        SELECT id, trip_id, title, description, order_index, feature_media_id
        FROM days
        WHERE trip_id = ANY($1)
        ORDER BY trip_id, order_index, created_at, id
    `
	days := []domain.DayRecord{}
	if err := r.db.SelectContext(ctx, &days, dayQuery, pq.Array(tripIDs)); err != nil {
		return fmt.Errorf("load days: %w", err)
	}
	if len(days) == 0 {
		return nil
	}

	dayIDs := make([]uuid.UUID, len(days))
	dayIndex := make(map[uuid.UUID]int, len(days))
	for i := range days {
		dayIDs[i] = days[i].ID
		dayIndex[days[i].ID] = i
		days[i].Activities = []domain.EntityRecord{}
		days[i].Attractions = []domain.EntityRecord{}
		days[i].Accommodations = []domain.EntityRecord{}
		days[i].Media = []domain.MediaRecord{}
	}

	for _, kind := range domain.EntityKinds {
		entities, err := r.listEntities(ctx, kind, dayIDs)
		if err != nil {
			return err
		}
		for _, entity := range entities {
			day := &days[dayIndex[entity.DayID]]
			switch kind {
			case domain.RelationActivity:
				day.Activities = append(day.Activities, entity)
			case domain.RelationAttraction:
				day.Attractions = append(day.Attractions, entity)
			case domain.RelationAccommodation:
				day.Accommodations = append(day.Accommodations, entity)
			}
		}
	}

	const mediaQuery = `
        SELECT id, day_id, media_url, media_type, related_to, activity_id, attraction_id, accommodation_id, created_at
        FROM day_media
        WHERE day_id = ANY($1)
        ORDER BY created_at, id
    `
	media := []domain.MediaRecord{}
	if err := r.db.SelectContext(ctx, &media, mediaQuery, pq.Array(dayIDs)); err != nil {
		return fmt.Errorf("load day media: %w", err)
	}
	for _, m := range media {
		day := &days[dayIndex[m.DayID]]
		day.Media = append(day.Media, m)
	}

	tripIndex := make(map[uuid.UUID]int, len(trips))
	for i := range trips {
		tripIndex[trips[i].ID] = i
	}
	for _, day := range days {
		trip := &trips[tripIndex[day.TripID]]
		trip.Days = append(trip.Days, day)
	}
	return nil
}

var entityTables = map[domain.Relation]string{
	domain.RelationActivity:      "activities",
	domain.RelationAttraction:    "attractions",
	domain.RelationAccommodation: "accommodations",
}

func (r *TripRepository) listEntities(ctx context.Context, kind domain.Relation, dayIDs []uuid.UUID) ([]domain.EntityRecord, error) {
	table, ok := entityTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	query := `
        SELECT id, day_id, title, description
        FROM ` + table + `
        WHERE day_id = ANY($1)
        ORDER BY created_at, id
    `
	entities := []domain.EntityRecord{}
	if err := r.db.SelectContext(ctx, &entities, query, pq.Array(dayIDs)); err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	for i := range entities {
		entities[i].Kind = kind
	}
	return entities, nil
}

func (r *TripRepository) ListDayIDs(ctx context.Context, tripID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM days WHERE trip_id = $1 ORDER BY order_index`, tripID); err != nil {
		return nil, err
	}
	return ids, nil
}

// FindCoverImage returns nil when the trip has no cover and sql.ErrNoRows when
// the trip does not exist.
func (r *TripRepository) FindCoverImage(ctx context.Context, tripID uuid.UUID) (*domain.MediaRef, error) {
	var cover domain.MediaRef
	if err := r.db.QueryRowxContext(ctx, `SELECT cover_image FROM trips WHERE id = $1`, tripID).Scan(&cover); err != nil {
		return nil, err
	}
	if cover.IsZero() {
		return nil, nil
	}
	return &cover, nil
}

func (r *TripRepository) ListMediaURLsByDayIDs(ctx context.Context, dayIDs []uuid.UUID) ([]domain.MediaRef, error) {
	refs := []domain.MediaRef{}
	if len(dayIDs) == 0 {
		return refs, nil
	}
	if err := r.db.SelectContext(ctx, &refs, `SELECT media_url FROM day_media WHERE day_id = ANY($1)`, pq.Array(dayIDs)); err != nil {
		return nil, err
	}
	return refs, nil
}

// DeleteDayChildren removes the media, activities, attractions and
// accommodations of the days in one transaction.
func (r *TripRepository) DeleteDayChildren(ctx context.Context, dayIDs []uuid.UUID) (err error) {
	if len(dayIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ids := pq.Array(dayIDs)
	for _, table := range []string{"day_media", "activities", "attractions", "accommodations"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE day_id = ANY($1)`, ids); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (r *TripRepository) DeleteDays(ctx context.Context, tripID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM days WHERE trip_id = $1`, tripID)
	return err
}

func (r *TripRepository) DeleteTrip(ctx context.Context, tripID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, tripID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

var _ ports.TripRepository = (*TripRepository)(nil)
