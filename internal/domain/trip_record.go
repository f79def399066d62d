package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TripRecord is the persisted read model of a trip.
type TripRecord struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	CoverImage  *MediaRef  `db:"cover_image" json:"cover_image,omitempty"`
	UserID      *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	Days []DayRecord `db:"-" json:"days"`
}

type DayRecord struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	TripID         uuid.UUID  `db:"trip_id" json:"trip_id"`
	Title          string     `db:"title" json:"title"`
	Description    *string    `db:"description" json:"description,omitempty"`
	OrderIndex     int        `db:"order_index" json:"order_index"`
	FeatureMediaID *uuid.UUID `db:"feature_media_id" json:"feature_media_id,omitempty"`

	Activities     []EntityRecord `db:"-" json:"activities"`
	Attractions    []EntityRecord `db:"-" json:"attractions"`
	Accommodations []EntityRecord `db:"-" json:"accommodations"`
	Media          []MediaRecord  `db:"-" json:"day_media"`
}

type EntityRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DayID       uuid.UUID `db:"day_id" json:"day_id"`
	Kind        Relation  `db:"-" json:"kind"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
}

type MediaRecord struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	DayID           uuid.UUID  `db:"day_id" json:"day_id"`
	URL             MediaRef   `db:"media_url" json:"media_url"`
	MediaType       MediaType  `db:"media_type" json:"media_type"`
	RelatedTo       Relation   `db:"related_to" json:"related_to"`
	ActivityID      *uuid.UUID `db:"activity_id" json:"activity_id,omitempty"`
	AttractionID    *uuid.UUID `db:"attraction_id" json:"attraction_id,omitempty"`
	AccommodationID *uuid.UUID `db:"accommodation_id" json:"accommodation_id,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Type prefers the envelope's type for legacy rows.
func (m MediaRecord) Type() MediaType {
	return m.URL.TypeOr(m.MediaType)
}

// Owner resolves the relation discriminator to the owning entity. A row whose
// discriminator names no owner, or names one while carrying another kind's id,
// is reported as an integrity defect.
func (m MediaRecord) Owner() (Relation, uuid.UUID, error) {
	relation := m.RelatedTo
	if relation == "" {
		relation = RelationDay
	}
	ids := map[Relation]*uuid.UUID{
		RelationActivity:      m.ActivityID,
		RelationAttraction:    m.AttractionID,
		RelationAccommodation: m.AccommodationID,
	}
	for kind, id := range ids {
		if kind != relation && id != nil {
			return "", uuid.Nil, fmt.Errorf("%w: media %s related to %s carries %s id", ErrMediaOwnerMismatch, m.ID, relation, kind)
		}
	}
	if relation == RelationDay {
		return RelationDay, m.DayID, nil
	}
	id, ok := ids[relation]
	if !ok {
		return "", uuid.Nil, fmt.Errorf("%w: media %s has unknown relation %q", ErrMediaOwnerMismatch, m.ID, relation)
	}
	if id == nil {
		return "", uuid.Nil, fmt.Errorf("%w: media %s related to %s has no owner id", ErrMediaOwnerMismatch, m.ID, relation)
	}
	return relation, *id, nil
}

// MediaFor returns the day's media rows owned by (kind, ownerID). Rows with an
// unresolvable owner are skipped.
func (d DayRecord) MediaFor(kind Relation, ownerID uuid.UUID) []MediaRecord {
	var out []MediaRecord
	for _, media := range d.Media {
		relation, id, err := media.Owner()
		if err != nil {
			continue
		}
		if relation == kind && id == ownerID {
			out = append(out, media)
		}
	}
	return out
}

// OrphanMedia returns rows whose discriminator resolves to no entity of the day.
func (d DayRecord) OrphanMedia() []MediaRecord {
	known := map[Relation]map[uuid.UUID]struct{}{
		RelationDay:           {d.ID: {}},
		RelationActivity:      entityIDs(d.Activities),
		RelationAttraction:    entityIDs(d.Attractions),
		RelationAccommodation: entityIDs(d.Accommodations),
	}
	var out []MediaRecord
	for _, media := range d.Media {
		relation, id, err := media.Owner()
		if err != nil {
			out = append(out, media)
			continue
		}
		if _, ok := known[relation][id]; !ok {
			out = append(out, media)
		}
	}
	return out
}

func entityIDs(entities []EntityRecord) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(entities))
	for _, entity := range entities {
		out[entity.ID] = struct{}{}
	}
	return out
}
