package domain

import (
	"bytes"
	"io"
	"strings"

	"github.com/google/uuid"
)

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeOther MediaType = "other"
)

// Relation names the kind of entity a media row hangs off. Together with the
// owner id it is the join key between media rows and the tree.
type Relation string

const (
	RelationDay           Relation = "day"
	RelationActivity      Relation = "activity"
	RelationAttraction    Relation = "attraction"
	RelationAccommodation Relation = "accommodation"
)

func (r Relation) Valid() bool {
	switch r {
	case RelationDay, RelationActivity, RelationAttraction, RelationAccommodation:
		return true
	}
	return false
}

// EntityKinds lists the day child kinds in traversal order.
var EntityKinds = []Relation{RelationActivity, RelationAttraction, RelationAccommodation}

// LocalFile is a client-side attachment that has not been stored yet. Open may
// be called more than once; every call must yield the full content.
type LocalFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// BytesFile wraps in-memory content as a LocalFile.
func BytesFile(name, contentType string, data []byte) LocalFile {
	buf := append([]byte(nil), data...)
	return LocalFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(buf)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		},
	}
}

// ExistingMedia is a media row that was persisted by an earlier save.
type ExistingMedia struct {
	ID       uuid.UUID
	Ref      MediaRef
	Type     MediaType
	Keep     bool
	Relation Relation
	OwnerID  uuid.UUID
}

type Entity struct {
	ID            *uuid.UUID
	Kind          Relation
	Title         string
	Description   string
	ExistingMedia []ExistingMedia
	NewMedia      []LocalFile
}

// FeaturedMedia selects the representative media of a day, either a persisted
// row by id or a file uploaded in the current save by its index in NewMedia.
// At most one of the two is set.
type FeaturedMedia struct {
	MediaID  *uuid.UUID
	NewIndex *int
}

func (f FeaturedMedia) IsZero() bool {
	return f.MediaID == nil && f.NewIndex == nil
}

type Day struct {
	ID             *uuid.UUID
	Title          string
	Description    string
	Activities     []Entity
	Attractions    []Entity
	Accommodations []Entity
	ExistingMedia  []ExistingMedia
	NewMedia       []LocalFile
	Featured       FeaturedMedia
}

// Entities returns the child list for kind. The returned slice aliases the day.
func (d *Day) Entities(kind Relation) []Entity {
	switch kind {
	case RelationActivity:
		return d.Activities
	case RelationAttraction:
		return d.Attractions
	case RelationAccommodation:
		return d.Accommodations
	}
	return nil
}

func (d *Day) setEntities(kind Relation, entities []Entity) {
	switch kind {
	case RelationActivity:
		d.Activities = entities
	case RelationAttraction:
		d.Attractions = entities
	case RelationAccommodation:
		d.Accommodations = entities
	}
}

// Removes reports whether mediaID is listed anywhere in the day, its own media
// or an entity's, with keep=false.
func (d *Day) Removes(mediaID uuid.UUID) bool {
	if listedRemoved(d.ExistingMedia, mediaID) {
		return true
	}
	for _, kind := range EntityKinds {
		for _, entity := range d.Entities(kind) {
			if listedRemoved(entity.ExistingMedia, mediaID) {
				return true
			}
		}
	}
	return false
}

func listedRemoved(items []ExistingMedia, id uuid.UUID) bool {
	for _, item := range items {
		if item.ID == id && !item.Keep {
			return true
		}
	}
	return false
}

// Trip is the editable tree submitted by a save. Days are ordered; a day's
// position becomes its persisted order index.
type Trip struct {
	ID          *uuid.UUID
	Title       string
	Description string
	CreatorID   uuid.UUID
	Cover       *MediaRef
	// StoredCover is the cover persisted before this save; nil when creating.
	StoredCover *MediaRef
	NewCover    *LocalFile
	RemoveCover bool
	Days        []Day
}

// HasNewMedia reports whether any slot in the tree still needs uploading.
func (t *Trip) HasNewMedia() bool {
	if t.NewCover != nil {
		return true
	}
	for i := range t.Days {
		day := &t.Days[i]
		if len(day.NewMedia) > 0 {
			return true
		}
		for _, kind := range EntityKinds {
			for _, entity := range day.Entities(kind) {
				if len(entity.NewMedia) > 0 {
					return true
				}
			}
		}
	}
	return false
}

// Clone returns a deep copy of the tree structure. File handles are shared;
// they are immutable descriptors.
func (t Trip) Clone() Trip {
	out := t
	out.ID = cloneUUID(t.ID)
	if t.Cover != nil {
		ref := *t.Cover
		out.Cover = &ref
	}
	if t.StoredCover != nil {
		ref := *t.StoredCover
		out.StoredCover = &ref
	}
	if t.NewCover != nil {
		file := *t.NewCover
		out.NewCover = &file
	}
	if t.Days != nil {
		out.Days = make([]Day, len(t.Days))
		for i, day := range t.Days {
			out.Days[i] = day.clone()
		}
	}
	return out
}

func (d Day) clone() Day {
	out := d
	out.ID = cloneUUID(d.ID)
	out.ExistingMedia = append([]ExistingMedia(nil), d.ExistingMedia...)
	out.NewMedia = append([]LocalFile(nil), d.NewMedia...)
	out.Featured = FeaturedMedia{MediaID: cloneUUID(d.Featured.MediaID), NewIndex: cloneInt(d.Featured.NewIndex)}
	for _, kind := range EntityKinds {
		src := d.Entities(kind)
		if src == nil {
			continue
		}
		dst := make([]Entity, len(src))
		for i, entity := range src {
			dst[i] = entity.clone()
		}
		out.setEntities(kind, dst)
	}
	return out
}

func (e Entity) clone() Entity {
	out := e
	out.ID = cloneUUID(e.ID)
	out.ExistingMedia = append([]ExistingMedia(nil), e.ExistingMedia...)
	out.NewMedia = append([]LocalFile(nil), e.NewMedia...)
	return out
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// CoverUnchanged reports whether the tree keeps the stored cover as it is.
// References are compared by resolved url, so a legacy envelope and its bare
// url count as the same cover.
func (t *Trip) CoverUnchanged() bool {
	if t.NewCover != nil || t.RemoveCover || t.Cover == nil || t.StoredCover == nil {
		return false
	}
	return t.Cover.URL == t.StoredCover.URL
}

// TrimmedTitle is the title used for validation and persistence.
func (t *Trip) TrimmedTitle() string {
	return strings.TrimSpace(t.Title)
}
