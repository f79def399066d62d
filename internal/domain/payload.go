package domain

import "github.com/google/uuid"

// UploadedMedia is a stored file as it travels to the persistence procedures.
type UploadedMedia struct {
	URL  string    `json:"url"`
	Type MediaType `json:"type"`
}

// TripPayload is the single JSON document handed to create_trip_with_relations
// and update_trip_with_relations. It never carries file content.
type TripPayload struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	CoverImage  *string      `json:"cover_image"`
	RemoveCover bool         `json:"remove_cover"`
	UserID      uuid.UUID    `json:"user_id"`
	Days        []DayPayload `json:"days"`
}

type DayPayload struct {
	ID                *uuid.UUID      `json:"id,omitempty"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	OrderIndex        int             `json:"order_index"`
	Activities        []EntityPayload `json:"activities"`
	Attractions       []EntityPayload `json:"attractions"`
	Accommodations    []EntityPayload `json:"accommodations"`
	FeatureMediaID    *uuid.UUID      `json:"feature_media_id"`
	FeatureMediaIndex *int            `json:"feature_media_index"`
	UploadedDayMedia  []UploadedMedia `json:"uploaded_day_media"`

	DayRemovedMediaIDs           []uuid.UUID `json:"day_removed_media_ids"`
	ActivityRemovedMediaIDs      []uuid.UUID `json:"activity_removed_media_ids"`
	AttractionRemovedMediaIDs    []uuid.UUID `json:"attraction_removed_media_ids"`
	AccommodationRemovedMediaIDs []uuid.UUID `json:"accommodation_removed_media_ids"`
}

type EntityPayload struct {
	ID            *uuid.UUID      `json:"id,omitempty"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	UploadedMedia []UploadedMedia `json:"uploaded_media"`
}
