package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
)

func dayMediaRefs(n int) []domain.MediaRef {
	refs := make([]domain.MediaRef, n)
	for i := range refs {
		refs[i] = domain.PlainRef(fmt.Sprintf("http://minio.test/day-media/days/%03d.jpg", i))
	}
	return refs
}

func TestDeleteCascadeOrderAndBatching(t *testing.T) {
	cover := domain.EnvelopedRef("http://minio.test/trip-covers/cover.jpg", domain.MediaTypeImage)
	repo := &fakeTripRepo{
		dayIDs:    []uuid.UUID{uuid.New(), uuid.New()},
		cover:     &cover,
		mediaRefs: append(dayMediaRefs(250), domain.PlainRef("https://cdn.other.test/x.jpg")),
	}
	storage := &fakeStorage{}
	svc := NewTripDeleteService(repo, storage, TripBuckets{}, nil)

	if err := svc.Delete(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	calls := repo.callLog()
	lookups := append([]string(nil), calls[:2]...)
	sort.Strings(lookups)
	if !reflect.DeepEqual(lookups, []string{"find_cover", "list_day_ids"}) {
		t.Fatalf("unexpected lookups: %v", calls[:2])
	}
	if want := []string{"list_media", "delete_children", "delete_days", "delete_trip"}; !reflect.DeepEqual(calls[2:], want) {
		t.Fatalf("unexpected cascade order: %v", calls[2:])
	}

	var daySizes []int
	coverCalls := 0
	for _, call := range storage.calls() {
		switch call.bucket {
		case "day-media":
			daySizes = append(daySizes, len(call.names))
		case "trip-covers":
			coverCalls++
			if !reflect.DeepEqual(call.names, []string{"cover.jpg"}) {
				t.Fatalf("unexpected cover removal: %v", call.names)
			}
		}
	}
	sort.Ints(daySizes)
	if !reflect.DeepEqual(daySizes, []int{50, 100, 100}) {
		t.Fatalf("expected batches of at most 100, got %v", daySizes)
	}
	if coverCalls != 1 {
		t.Fatalf("expected one cover removal, got %d", coverCalls)
	}
}

func TestDeleteTripWithoutDays(t *testing.T) {
	repo := &fakeTripRepo{}
	storage := &fakeStorage{}

	if err := NewTripDeleteService(repo, storage, TripBuckets{}, nil).Delete(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	calls := repo.callLog()
	if calls[len(calls)-1] != "delete_trip" || len(calls) != 3 {
		t.Fatalf("expected only the trip row delete after lookups, got %v", calls)
	}
	if len(storage.calls()) != 0 {
		t.Fatalf("expected no storage calls")
	}
}

func TestDeleteStorageFailureDoesNotStopCascade(t *testing.T) {
	repo := &fakeTripRepo{dayIDs: []uuid.UUID{uuid.New()}, mediaRefs: dayMediaRefs(3)}
	storage := &fakeStorage{removeErr: map[string]error{"day-media": errors.New("unavailable")}}

	if err := NewTripDeleteService(repo, storage, TripBuckets{}, nil).Delete(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	calls := repo.callLog()
	if calls[len(calls)-1] != "delete_trip" {
		t.Fatalf("expected cascade to reach the trip row, got %v", calls)
	}
}

func TestDeleteRowFailureStopsCascade(t *testing.T) {
	repo := &fakeTripRepo{dayIDs: []uuid.UUID{uuid.New()}, childrenErr: errDatabaseDown}

	err := NewTripDeleteService(repo, &fakeStorage{}, TripBuckets{}, nil).Delete(context.Background(), uuid.New())
	if !errors.Is(err, ErrTripDelete) || !errors.Is(err, errDatabaseDown) {
		t.Fatalf("expected wrapped delete error, got %v", err)
	}
	for _, call := range repo.callLog() {
		if call == "delete_days" || call == "delete_trip" {
			t.Fatalf("cascade must stop after a failed row delete, got %v", repo.callLog())
		}
	}
}

func TestDeleteMissingTrip(t *testing.T) {
	repo := &fakeTripRepo{coverErr: sql.ErrNoRows}

	err := NewTripDeleteService(repo, &fakeStorage{}, TripBuckets{}, nil).Delete(context.Background(), uuid.New())
	if !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("expected ErrTripNotFound, got %v", err)
	}
}
