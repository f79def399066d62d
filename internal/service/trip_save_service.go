package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/media"
	"github.com/rrrobertsson/airmango-admin-panel/internal/metrics"
	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/ports"
	"github.com/rrrobertsson/airmango-admin-panel/internal/upload"
)

// SaveState is a stage of one save run.
type SaveState string

const (
	SaveIdle        SaveState = "idle"
	SaveFlattening  SaveState = "flattening"
	SaveUploading   SaveState = "uploading"
	SaveRehydrating SaveState = "rehydrating"
	SavePersisting  SaveState = "persisting"
	SaveCommitted   SaveState = "committed"
	SaveRollingBack SaveState = "rolling_back"
	SaveDone        SaveState = "done"
)

// SaveMode selects the persistence procedure.
type SaveMode string

const (
	SaveCreate SaveMode = "create"
	SaveUpdate SaveMode = "update"
)

// BatchUploader uploads a batch and answers it position by position.
type BatchUploader interface {
	UploadAll(ctx context.Context, requests []upload.Request) ([]upload.Result, error)
}

type SaveResult struct {
	TripID uuid.UUID
	// Uploaded counts new files that reached storage and were committed.
	Uploaded int
	// FailedUploads names the files whose upload failed; their slots were
	// saved without them.
	FailedUploads []string
	// RemovedMedia counts media rows the update procedure deleted.
	RemovedMedia int
}

type TripSaveConfig struct {
	Buckets TripBuckets
	Metrics *metrics.TripMetrics
}

// TripSaveService runs the save pipeline: flatten the frozen tree, upload its
// new files as one batch, reattach the stored URLs, and hand a URL-only
// payload to the transactional procedure. Uploads that the procedure never
// committed are removed again.
type TripSaveService struct {
	trips    ports.TripRepository
	storage  ports.ObjectStorage
	uploads  BatchUploader
	validate *validator.Validate
	buckets  TripBuckets
	metrics  *metrics.TripMetrics
	now      func() time.Time
}

func NewTripSaveService(trips ports.TripRepository, storage ports.ObjectStorage, uploads BatchUploader, cfg TripSaveConfig) *TripSaveService {
	return &TripSaveService{
		trips:    trips,
		storage:  storage,
		uploads:  uploads,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		buckets:  cfg.Buckets.withDefaults(),
		metrics:  cfg.Metrics,
		now:      time.Now,
	}
}

type tripValidation struct {
	Title     string    `validate:"required,max=200"`
	CreatorID uuid.UUID `validate:"required"`
}

// Create persists a new trip.
func (s *TripSaveService) Create(ctx context.Context, trip domain.Trip) (SaveResult, error) {
	return s.Save(ctx, SaveCreate, trip)
}

// Update persists trip over the stored trip tripID.
func (s *TripSaveService) Update(ctx context.Context, tripID uuid.UUID, trip domain.Trip) (SaveResult, error) {
	id := tripID
	trip.ID = &id
	return s.Save(ctx, SaveUpdate, trip)
}

// Save runs one save. The tree is cloned on entry and never read again, so
// later edits by the caller cannot shift tags mid-save. A failed save is not
// resumable; retry with a fresh call.
func (s *TripSaveService) Save(ctx context.Context, mode SaveMode, trip domain.Trip) (result SaveResult, err error) {
	started := s.now()
	run := &saveRun{state: SaveIdle, log: zerolog.Ctx(ctx).With().Str("mode", string(mode)).Logger()}
	defer func() {
		run.enter(SaveDone)
		s.metrics.ObserveSave(string(mode), err, s.now().Sub(started))
	}()

	if err := s.validateTrip(mode, &trip); err != nil {
		return SaveResult{}, err
	}

	run.enter(SaveFlattening)
	snapshot, cleared := trip.Clone().ClearDanglingFeatured()
	if cleared > 0 {
		run.log.Debug().Int("cleared", cleared).Msg("cleared dangling featured references")
	}
	var (
		requests []upload.Request
		results  []upload.Result
	)
	if snapshot.HasNewMedia() {
		requests = Flatten(&snapshot, s.buckets)
		run.enter(SaveUploading)
		results, err = s.uploads.UploadAll(ctx, requests)
		if err != nil {
			return SaveResult{}, fmt.Errorf("upload media: %w", err)
		}
	}
	succeeded := upload.Succeeded(results)

	run.enter(SaveRehydrating)
	stored, err := Rehydrate(&snapshot, requests, results)
	if err != nil {
		s.rollback(ctx, run, succeeded)
		return SaveResult{}, fmt.Errorf("%w: %w", ErrTripPersistence, err)
	}
	result.Uploaded = len(succeeded)
	result.FailedUploads = failedFileNames(requests, results)
	if len(stored.Missing) > 0 {
		run.log.Warn().Strs("tags", stored.Missing).Msg("saving without media that failed to upload")
	}

	run.enter(SavePersisting)
	payload := BuildPayload(&snapshot, stored, mode == SaveCreate)
	var deletedURLs []string
	switch mode {
	case SaveCreate:
		result.TripID, err = s.trips.CreateWithRelations(ctx, payload)
	case SaveUpdate:
		result.TripID = *snapshot.ID
		deletedURLs, err = s.trips.UpdateWithRelations(ctx, result.TripID, payload)
	}
	if err != nil {
		run.enter(SaveRollingBack)
		s.rollback(ctx, run, succeeded)
		if mode == SaveUpdate && errors.Is(err, sql.ErrNoRows) {
			return SaveResult{}, fmt.Errorf("%w: %w", ErrTripNotFound, err)
		}
		return SaveResult{}, fmt.Errorf("%w: %w", ErrTripPersistence, err)
	}

	run.enter(SaveCommitted)
	result.RemovedMedia = len(deletedURLs)
	if len(deletedURLs) > 0 {
		s.removeDeletedMedia(ctx, run, deletedURLs)
	}
	run.log.Info().
		Str("trip_id", result.TripID.String()).
		Int("uploaded", result.Uploaded).
		Int("failed_uploads", len(result.FailedUploads)).
		Int("removed_media", result.RemovedMedia).
		Msg("trip saved")
	return result, nil
}

func (s *TripSaveService) validateTrip(mode SaveMode, trip *domain.Trip) error {
	if mode != SaveCreate && mode != SaveUpdate {
		return fmt.Errorf("%w: unknown save mode %q", ErrTripValidation, mode)
	}
	if err := s.validate.Struct(tripValidation{Title: trip.TrimmedTitle(), CreatorID: trip.CreatorID}); err != nil {
		return fmt.Errorf("%w: %s", ErrTripValidation, describeValidation(err))
	}
	if mode == SaveUpdate && (trip.ID == nil || *trip.ID == uuid.Nil) {
		return fmt.Errorf("%w: trip id is required", ErrTripValidation)
	}
	if err := trip.CheckOwnership(); err != nil {
		return fmt.Errorf("%w: %w", ErrTripValidation, err)
	}
	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if field == "creatorid" {
			field = "creator"
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

// rollback removes every object uploaded by the failed save, one removal per
// object. Failures are logged and never replace the save error.
func (s *TripSaveService) rollback(ctx context.Context, run *saveRun, uploaded []upload.Result) {
	if len(uploaded) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var (
		mu   sync.Mutex
		errs error
	)
	var g errgroup.Group
	for _, res := range uploaded {
		g.Go(func() error {
			if err := s.removeUploaded(ctx, res); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	s.metrics.AddRollbackObjects(len(uploaded))
	for _, failure := range multierr.Errors(errs) {
		s.metrics.IncCleanupFailure("rollback")
		run.log.Error().Err(failure).Msg("rollback left an orphaned upload")
	}
	run.log.Warn().Int("objects", len(uploaded)).Msg("rolled back uploads of failed save")
}

// removeUploaded deletes one uploaded object. Results without a recorded path
// are located from their URL, trying the day media bucket before the covers
// bucket.
func (s *TripSaveService) removeUploaded(ctx context.Context, res upload.Result) error {
	bucket, path := res.Bucket, res.Path
	if bucket == "" || path == "" {
		obj, ok := media.LocateObject(domain.PlainRef(res.URL), s.buckets.DayMedia, s.buckets.Covers)
		if !ok {
			return &CleanupFailure{Paths: []string{res.URL}, Err: errors.New("url matches no known bucket")}
		}
		bucket, path = obj.Bucket, obj.Path
	}
	if err := s.storage.Remove(ctx, bucket, []string{path}); err != nil {
		return &CleanupFailure{Bucket: bucket, Paths: []string{path}, Err: err}
	}
	return nil
}

// removeDeletedMedia frees the objects behind media rows the update procedure
// removed. The database is already consistent, so failures are only logged.
func (s *TripSaveService) removeDeletedMedia(ctx context.Context, run *saveRun, urls []string) {
	objects := make([]media.ObjectRef, 0, len(urls))
	for _, raw := range urls {
		obj, ok := media.LocateObject(domain.ParseMediaRef(raw), s.buckets.DayMedia, s.buckets.Covers)
		if !ok {
			run.log.Warn().Str("url", raw).Msg("deleted media url matches no known bucket")
			continue
		}
		objects = append(objects, obj)
	}
	for _, failure := range removeObjectBatches(context.WithoutCancel(ctx), s.storage, media.GroupByBucket(objects)) {
		s.metrics.IncCleanupFailure("post_commit")
		run.log.Error().Err(failure).Msg("post-commit media cleanup failed")
	}
}

func failedFileNames(requests []upload.Request, results []upload.Result) []string {
	var out []string
	for i, res := range results {
		if !res.OK() {
			out = append(out, requests[i].File.Name)
		}
	}
	return out
}

// saveRun tracks the stage of one save for logging.
type saveRun struct {
	state SaveState
	log   zerolog.Logger
}

func (r *saveRun) enter(next SaveState) {
	r.log.Debug().Str("from", string(r.state)).Str("to", string(next)).Msg("save state")
	r.state = next
}
