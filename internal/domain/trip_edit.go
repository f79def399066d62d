package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Edits never mutate the receiver: each returns a fresh tree so that a
// snapshot taken for a save cannot change underneath it.

var (
	ErrDayIndexOutOfRange    = errors.New("day index out of range")
	ErrEntityIndexOutOfRange = errors.New("entity index out of range")
	ErrMediaIndexOutOfRange  = errors.New("media index out of range")
	ErrUnknownEntityKind     = errors.New("unknown entity kind")
	ErrMediaNotFound         = errors.New("media not found")
	ErrMediaRemoved          = errors.New("media is marked for removal")
	ErrMediaOwnerMismatch    = errors.New("media relation does not match its owner")
)

func (t Trip) AddDay(day Day) Trip {
	out := t.Clone()
	out.Days = append(out.Days, day.clone())
	return out
}

func (t Trip) AddEntity(dayIndex int, entity Entity) (Trip, error) {
	if !isEntityKind(entity.Kind) {
		return t, ErrUnknownEntityKind
	}
	if dayIndex < 0 || dayIndex >= len(t.Days) {
		return t, ErrDayIndexOutOfRange
	}
	out := t.Clone()
	day := &out.Days[dayIndex]
	day.setEntities(entity.Kind, append(day.Entities(entity.Kind), entity.clone()))
	return out, nil
}

// AddNewMedia appends files to the day (kind == RelationDay) or to one of its
// entities.
func (t Trip) AddNewMedia(dayIndex int, kind Relation, entityIndex int, files ...LocalFile) (Trip, error) {
	out, day, err := t.editDay(dayIndex)
	if err != nil {
		return t, err
	}
	if kind == RelationDay {
		day.NewMedia = append(day.NewMedia, files...)
		return out, nil
	}
	entity, err := entityAt(day, kind, entityIndex)
	if err != nil {
		return t, err
	}
	entity.NewMedia = append(entity.NewMedia, files...)
	return out, nil
}

// MarkExistingRemoved flips keep=false on a persisted media item anywhere in
// the day. A featured reference to it is cleared, never reassigned.
func (t Trip) MarkExistingRemoved(dayIndex int, mediaID uuid.UUID) (Trip, error) {
	out, day, err := t.editDay(dayIndex)
	if err != nil {
		return t, err
	}
	found := markRemoved(day.ExistingMedia, mediaID)
	for _, kind := range EntityKinds {
		entities := day.Entities(kind)
		for i := range entities {
			if markRemoved(entities[i].ExistingMedia, mediaID) {
				found = true
			}
		}
	}
	if !found {
		return t, ErrMediaNotFound
	}
	if id := day.Featured.MediaID; id != nil && *id == mediaID {
		day.Featured.MediaID = nil
	}
	return out, nil
}

// SetFeaturedExisting features a persisted media row of the day. The row need
// not be listed in the tree; one listed as removed is refused.
func (t Trip) SetFeaturedExisting(dayIndex int, mediaID uuid.UUID) (Trip, error) {
	out, day, err := t.editDay(dayIndex)
	if err != nil {
		return t, err
	}
	if day.Removes(mediaID) {
		return t, ErrMediaRemoved
	}
	id := mediaID
	day.Featured = FeaturedMedia{MediaID: &id}
	return out, nil
}

func (t Trip) SetFeaturedNew(dayIndex, fileIndex int) (Trip, error) {
	out, day, err := t.editDay(dayIndex)
	if err != nil {
		return t, err
	}
	if fileIndex < 0 || fileIndex >= len(day.NewMedia) {
		return t, ErrMediaIndexOutOfRange
	}
	idx := fileIndex
	day.Featured = FeaturedMedia{NewIndex: &idx}
	return out, nil
}

// ClearDanglingFeatured returns a tree in which no featured reference points
// at media marked for removal or past the day's new files, and the number of
// references it cleared. A featured row the tree does not list is kept.
func (t Trip) ClearDanglingFeatured() (Trip, int) {
	out := t.Clone()
	cleared := 0
	for i := range out.Days {
		day := &out.Days[i]
		if id := day.Featured.MediaID; id != nil && day.Removes(*id) {
			day.Featured.MediaID = nil
			cleared++
		}
		if idx := day.Featured.NewIndex; idx != nil && (*idx < 0 || *idx >= len(day.NewMedia)) {
			day.Featured.NewIndex = nil
			cleared++
		}
	}
	return out, cleared
}

// CheckOwnership verifies that every persisted media item sits under the
// entity its relation discriminator names.
func (t *Trip) CheckOwnership() error {
	for dayIndex := range t.Days {
		day := &t.Days[dayIndex]
		for _, media := range day.ExistingMedia {
			if media.Relation != RelationDay || (day.ID != nil && media.OwnerID != *day.ID) {
				return fmt.Errorf("%w: media %s in day %d", ErrMediaOwnerMismatch, media.ID, dayIndex)
			}
		}
		for _, kind := range EntityKinds {
			for entityIndex, entity := range day.Entities(kind) {
				for _, media := range entity.ExistingMedia {
					if media.Relation != kind || entity.ID == nil || media.OwnerID != *entity.ID {
						return fmt.Errorf("%w: media %s in day %d %s %d", ErrMediaOwnerMismatch, media.ID, dayIndex, kind, entityIndex)
					}
				}
			}
		}
	}
	return nil
}

func (t Trip) editDay(dayIndex int) (Trip, *Day, error) {
	if dayIndex < 0 || dayIndex >= len(t.Days) {
		return t, nil, ErrDayIndexOutOfRange
	}
	out := t.Clone()
	return out, &out.Days[dayIndex], nil
}

func entityAt(day *Day, kind Relation, entityIndex int) (*Entity, error) {
	if !isEntityKind(kind) {
		return nil, ErrUnknownEntityKind
	}
	entities := day.Entities(kind)
	if entityIndex < 0 || entityIndex >= len(entities) {
		return nil, ErrEntityIndexOutOfRange
	}
	return &entities[entityIndex], nil
}

func isEntityKind(kind Relation) bool {
	return kind == RelationActivity || kind == RelationAttraction || kind == RelationAccommodation
}

func markRemoved(items []ExistingMedia, id uuid.UUID) bool {
	for i := range items {
		if items[i].ID == id {
			items[i].Keep = false
			return true
		}
	}
	return false
}
