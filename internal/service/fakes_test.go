package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/upload"
)

var errDatabaseDown = errors.New("database down")

type fakeTripRepo struct {
	mu    sync.Mutex
	calls []string

	createID    uuid.UUID
	createErr   error
	updateErr   error
	deletedURLs []string
	payloads    []domain.TripPayload
	// storedCover is the raw cover column. When set, updates replace it the
	// way update_trip_with_relations does and report the old value as deleted
	// whenever it changes.
	storedCover *string

	records map[uuid.UUID]*domain.TripRecord

	dayIDs      []uuid.UUID
	dayIDsErr   error
	cover       *domain.MediaRef
	coverErr    error
	mediaRefs   []domain.MediaRef
	childrenErr error
	daysErr     error
	tripErr     error
}

func (r *fakeTripRepo) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *fakeTripRepo) callLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeTripRepo) CreateWithRelations(ctx context.Context, payload domain.TripPayload) (uuid.UUID, error) {
	r.record("create")
	r.mu.Lock()
	r.payloads = append(r.payloads, payload)
	r.mu.Unlock()
	if r.createErr != nil {
		return uuid.Nil, r.createErr
	}
	if r.createID == uuid.Nil {
		r.createID = uuid.New()
	}
	return r.createID, nil
}

func (r *fakeTripRepo) UpdateWithRelations(ctx context.Context, tripID uuid.UUID, payload domain.TripPayload) ([]string, error) {
	r.record("update")
	r.mu.Lock()
	r.payloads = append(r.payloads, payload)
	r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	deleted := append([]string(nil), r.deletedURLs...)
	if old := r.storedCover; old != nil {
		next := old
		switch {
		case payload.CoverImage != nil && *payload.CoverImage != "":
			next = payload.CoverImage
		case payload.RemoveCover:
			next = nil
		}
		if next == nil || *next != *old {
			deleted = append(deleted, *old)
		}
		r.storedCover = next
	}
	return deleted, nil
}

func (r *fakeTripRepo) List(ctx context.Context, limit, offset int) ([]domain.TripRecord, error) {
	r.record("list")
	var out []domain.TripRecord
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (r *fakeTripRepo) FindByID(ctx context.Context, tripID uuid.UUID) (*domain.TripRecord, error) {
	r.record("find")
	rec, ok := r.records[tripID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rec, nil
}

func (r *fakeTripRepo) ListDayIDs(ctx context.Context, tripID uuid.UUID) ([]uuid.UUID, error) {
	r.record("list_day_ids")
	return r.dayIDs, r.dayIDsErr
}

func (r *fakeTripRepo) FindCoverImage(ctx context.Context, tripID uuid.UUID) (*domain.MediaRef, error) {
	r.record("find_cover")
	return r.cover, r.coverErr
}

func (r *fakeTripRepo) ListMediaURLsByDayIDs(ctx context.Context, dayIDs []uuid.UUID) ([]domain.MediaRef, error) {
	r.record("list_media")
	return r.mediaRefs, nil
}

func (r *fakeTripRepo) DeleteDayChildren(ctx context.Context, dayIDs []uuid.UUID) error {
	r.record("delete_children")
	return r.childrenErr
}

func (r *fakeTripRepo) DeleteDays(ctx context.Context, tripID uuid.UUID) error {
	r.record("delete_days")
	return r.daysErr
}

func (r *fakeTripRepo) DeleteTrip(ctx context.Context, tripID uuid.UUID) error {
	r.record("delete_trip")
	return r.tripErr
}

type removeCall struct {
	bucket string
	names  []string
}

type fakeStorage struct {
	mu        sync.Mutex
	removes   []removeCall
	removeErr map[string]error
}

func (s *fakeStorage) Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) error {
	return errors.New("unexpected upload")
}

func (s *fakeStorage) Remove(ctx context.Context, bucket string, objectNames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removes = append(s.removes, removeCall{bucket: bucket, names: append([]string(nil), objectNames...)})
	return s.removeErr[bucket]
}

func (s *fakeStorage) PublicURL(bucket, objectName string) string {
	return "http://minio.test/" + bucket + "/" + objectName
}

func (s *fakeStorage) EnsureBucket(ctx context.Context, bucket string) error {
	return nil
}

func (s *fakeStorage) calls() []removeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]removeCall(nil), s.removes...)
}

// removed lists every removed object as bucket/path, sorted.
func (s *fakeStorage) removed() []string {
	var out []string
	for _, call := range s.calls() {
		for _, name := range call.names {
			out = append(out, call.bucket+"/"+name)
		}
	}
	sort.Strings(out)
	return out
}

// scriptedUploads answers each request with a stored object unless its tag is
// listed in fail.
type scriptedUploads struct {
	mu       sync.Mutex
	fail     map[string]error
	batchErr error
	batches  [][]upload.Request
}

func (u *scriptedUploads) UploadAll(ctx context.Context, requests []upload.Request) ([]upload.Result, error) {
	u.mu.Lock()
	u.batches = append(u.batches, requests)
	u.mu.Unlock()
	if u.batchErr != nil {
		return nil, u.batchErr
	}
	results := make([]upload.Result, len(requests))
	for i, req := range requests {
		if err := u.fail[req.Tag]; err != nil {
			results[i] = upload.Result{Tag: req.Tag, Err: err}
			continue
		}
		path := strings.TrimPrefix(req.Folder+"/"+req.Tag+"-"+req.File.Name, "/")
		results[i] = upload.Result{
			Tag:    req.Tag,
			URL:    "http://minio.test/" + req.Bucket + "/" + path,
			Type:   domain.MediaTypeImage,
			Bucket: req.Bucket,
			Path:   path,
		}
	}
	return results, nil
}

func (u *scriptedUploads) batchCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.batches)
}

type fakeUserRepo struct {
	byEmail map[string]*domain.User
	byID    map[uuid.UUID]*domain.User
	lookups int
	listed  []domain.User
	limit   int
	offset  int
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{byEmail: map[string]*domain.User{}, byID: map[uuid.UUID]*domain.User{}}
	for _, u := range users {
		repo.byEmail[u.Email] = u
		repo.byID[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.lookups++
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakeUserRepo) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	r.limit, r.offset = limit, offset
	return r.listed, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	if _, taken := r.byEmail[user.Email]; taken {
		return errDuplicateEmail
	}
	user.ID = uuid.New()
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
	return nil
}

var errDuplicateEmail = errors.New("duplicate email")

type fakeSessionRepo struct {
	sessions map[string]*domain.Session
	nextID   int64
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*domain.Session{}}
}

func (r *fakeSessionRepo) CreateSession(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*domain.Session, error) {
	r.nextID++
	session := &domain.Session{ID: r.nextID, UserID: userID, Token: token, CreatedAt: time.Now(), ExpiresAt: expiresAt, IsActive: true}
	r.sessions[token] = session
	return session, nil
}

func (r *fakeSessionRepo) DeactivateSession(ctx context.Context, token string) error {
	if session, ok := r.sessions[token]; ok {
		session.IsActive = false
	}
	return nil
}

func (r *fakeSessionRepo) FindActiveSession(ctx context.Context, token string) (*domain.Session, error) {
	session, ok := r.sessions[token]
	if !ok || !session.IsActive || time.Now().After(session.ExpiresAt) {
		return nil, sql.ErrNoRows
	}
	return session, nil
}
