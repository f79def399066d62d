package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/upload"
)

// CoverTag is the source tag of the trip cover upload.
const CoverTag = "cover"

// TripBuckets names the storage buckets trip media is written to.
type TripBuckets struct {
	DayMedia string
	Covers   string
}

func (b TripBuckets) withDefaults() TripBuckets {
	if b.DayMedia == "" {
		b.DayMedia = "day-media"
	}
	if b.Covers == "" {
		b.Covers = "trip-covers"
	}
	return b
}

// DayMediaTag tags the m-th new file attached to day d.
func DayMediaTag(day, index int) string {
	return fmt.Sprintf("day%d-day-media-%d", day, index)
}

// EntityMediaTag tags the m-th new file of the e-th entity of kind in day d.
// Kinds are drawn from a closed set without digits or the "-media-" infix, so
// tags never collide.
func EntityMediaTag(day int, kind domain.Relation, entity, index int) string {
	return fmt.Sprintf("day%d-%s-%d-media-%d", day, kind, entity, index)
}

var mediaFolders = map[domain.Relation]string{
	domain.RelationDay:           "days",
	domain.RelationActivity:      "activities",
	domain.RelationAttraction:    "attractions",
	domain.RelationAccommodation: "accommodations",
}

// mediaSlot is one new file in the tree together with its position.
type mediaSlot struct {
	tag    string
	cover  bool
	day    int
	kind   domain.Relation
	entity int
	index  int
	file   domain.LocalFile
}

// walkNewMedia visits every new file in the fixed traversal order: the cover,
// then per day its own media followed by activities, attractions and
// accommodations in position order. Flatten and Rehydrate both walk through
// here so tags and order always agree.
func walkNewMedia(trip *domain.Trip, visit func(mediaSlot)) {
	if trip.NewCover != nil {
		visit(mediaSlot{tag: CoverTag, cover: true, day: -1, file: *trip.NewCover})
	}
	for d := range trip.Days {
		day := &trip.Days[d]
		for m, file := range day.NewMedia {
			visit(mediaSlot{tag: DayMediaTag(d, m), day: d, kind: domain.RelationDay, index: m, file: file})
		}
		for _, kind := range domain.EntityKinds {
			for e, entity := range day.Entities(kind) {
				for m, file := range entity.NewMedia {
					visit(mediaSlot{tag: EntityMediaTag(d, kind, e, m), day: d, kind: kind, entity: e, index: m, file: file})
				}
			}
		}
	}
}

// Flatten lists one upload request per new file in the tree.
func Flatten(trip *domain.Trip, buckets TripBuckets) []upload.Request {
	buckets = buckets.withDefaults()
	var requests []upload.Request
	walkNewMedia(trip, func(slot mediaSlot) {
		req := upload.Request{File: slot.file, Tag: slot.tag}
		if slot.cover {
			req.Bucket = buckets.Covers
		} else {
			req.Bucket = buckets.DayMedia
			req.Folder = mediaFolders[slot.kind]
		}
		requests = append(requests, req)
	})
	return requests
}

// RehydratedDay holds the stored media of one day, positioned like the tree.
type RehydratedDay struct {
	Media    []domain.UploadedMedia
	Entities map[domain.Relation][][]domain.UploadedMedia
	// FeaturedIndex is the day's featured new file as an index into Media, or
	// nil when no new file is featured or the featured file failed to upload.
	FeaturedIndex *int
}

type Rehydrated struct {
	Cover *domain.UploadedMedia
	Days  []RehydratedDay
	// Missing lists the tags of slots whose upload failed, in traversal order.
	Missing []string
}

// Rehydrate attaches upload results back onto the tree positions that produced
// them. requests and results must be the Flatten output for trip and the
// coordinator's answer to it. A slot without a successful result is left out
// and reported in Missing.
func Rehydrate(trip *domain.Trip, requests []upload.Request, results []upload.Result) (Rehydrated, error) {
	if len(requests) != len(results) {
		return Rehydrated{}, fmt.Errorf("rehydrate: %d results for %d requests", len(results), len(requests))
	}
	byTag := make(map[string]domain.UploadedMedia, len(results))
	for i, req := range requests {
		if _, dup := byTag[req.Tag]; dup {
			return Rehydrated{}, fmt.Errorf("rehydrate: duplicate tag %q", req.Tag)
		}
		res := results[i]
		if res.Tag != "" && res.Tag != req.Tag {
			return Rehydrated{}, fmt.Errorf("rehydrate: result %d tagged %q, expected %q", i, res.Tag, req.Tag)
		}
		if res.OK() {
			byTag[req.Tag] = domain.UploadedMedia{URL: res.URL, Type: res.Type}
		}
	}

	out := Rehydrated{Days: make([]RehydratedDay, len(trip.Days))}
	for d := range trip.Days {
		out.Days[d].Entities = make(map[domain.Relation][][]domain.UploadedMedia, len(domain.EntityKinds))
		for _, kind := range domain.EntityKinds {
			out.Days[d].Entities[kind] = make([][]domain.UploadedMedia, len(trip.Days[d].Entities(kind)))
		}
	}
	// dayPositions[d][m] is the index in Days[d].Media of new file m, or -1.
	dayPositions := make([][]int, len(trip.Days))

	walkNewMedia(trip, func(slot mediaSlot) {
		stored, ok := byTag[slot.tag]
		if slot.day >= 0 && slot.kind == domain.RelationDay {
			pos := -1
			if ok {
				pos = len(out.Days[slot.day].Media)
			}
			dayPositions[slot.day] = append(dayPositions[slot.day], pos)
		}
		if !ok {
			out.Missing = append(out.Missing, slot.tag)
			return
		}
		switch {
		case slot.cover:
			media := stored
			out.Cover = &media
		case slot.kind == domain.RelationDay:
			out.Days[slot.day].Media = append(out.Days[slot.day].Media, stored)
		default:
			entities := out.Days[slot.day].Entities[slot.kind]
			entities[slot.entity] = append(entities[slot.entity], stored)
		}
	})

	for d := range trip.Days {
		idx := trip.Days[d].Featured.NewIndex
		if idx == nil || *idx < 0 || *idx >= len(dayPositions[d]) {
			continue
		}
		if pos := dayPositions[d][*idx]; pos >= 0 {
			out.Days[d].FeaturedIndex = &pos
		}
	}
	return out, nil
}

// BuildPayload serializes the frozen tree and its stored media into the
// document accepted by the save procedures. Entity and day ids are dropped
// when creating.
func BuildPayload(trip *domain.Trip, stored Rehydrated, create bool) domain.TripPayload {
	payload := domain.TripPayload{
		Title:       trip.TrimmedTitle(),
		Description: trip.Description,
		UserID:      trip.CreatorID,
		Days:        make([]domain.DayPayload, len(trip.Days)),
	}

	switch {
	case stored.Cover != nil:
		url := stored.Cover.URL
		payload.CoverImage = &url
	case trip.RemoveCover:
		payload.RemoveCover = !create
	case !create && trip.CoverUnchanged():
		// No cover_image keeps the stored column untouched.
	case trip.Cover != nil && !trip.Cover.IsZero():
		url := trip.Cover.URL
		payload.CoverImage = &url
	}

	for d := range trip.Days {
		day := &trip.Days[d]
		var rehydrated RehydratedDay
		if d < len(stored.Days) {
			rehydrated = stored.Days[d]
		}
		out := domain.DayPayload{
			Title:            day.Title,
			Description:      day.Description,
			OrderIndex:       d,
			UploadedDayMedia: nonNilMedia(rehydrated.Media),
		}
		if !create {
			out.ID = day.ID
			out.DayRemovedMediaIDs = removedIDs(day.ExistingMedia)
		}

		switch {
		case rehydrated.FeaturedIndex != nil:
			idx := *rehydrated.FeaturedIndex
			out.FeatureMediaIndex = &idx
		case day.Featured.NewIndex == nil && day.Featured.MediaID != nil && !create && !day.Removes(*day.Featured.MediaID):
			id := *day.Featured.MediaID
			out.FeatureMediaID = &id
		}

		for _, kind := range domain.EntityKinds {
			entities := day.Entities(kind)
			payloads := make([]domain.EntityPayload, len(entities))
			var removed []uuid.UUID
			for e := range entities {
				entity := &entities[e]
				var media []domain.UploadedMedia
				if lists := rehydrated.Entities[kind]; e < len(lists) {
					media = lists[e]
				}
				payloads[e] = domain.EntityPayload{
					Title:         entity.Title,
					Description:   entity.Description,
					UploadedMedia: nonNilMedia(media),
				}
				if !create {
					payloads[e].ID = entity.ID
					removed = append(removed, removedIDs(entity.ExistingMedia)...)
				}
			}
			switch kind {
			case domain.RelationActivity:
				out.Activities = payloads
				out.ActivityRemovedMediaIDs = removed
			case domain.RelationAttraction:
				out.Attractions = payloads
				out.AttractionRemovedMediaIDs = removed
			case domain.RelationAccommodation:
				out.Accommodations = payloads
				out.AccommodationRemovedMediaIDs = removed
			}
		}
		payload.Days[d] = out
	}
	return payload
}

// removedIDs lists the existing media the save must delete.
func removedIDs(items []domain.ExistingMedia) []uuid.UUID {
	var out []uuid.UUID
	for _, item := range items {
		if !item.Keep {
			out = append(out, item.ID)
		}
	}
	return out
}

func nonNilMedia(media []domain.UploadedMedia) []domain.UploadedMedia {
	if media == nil {
		return []domain.UploadedMedia{}
	}
	return media
}
