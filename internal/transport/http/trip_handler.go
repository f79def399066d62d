package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/postgres"
	"github.com/rrrobertsson/airmango-admin-panel/internal/service"
	"github.com/rrrobertsson/airmango-admin-panel/internal/util"
)

const defaultMultipartMemory = 32 << 20

type TripReader interface {
	List(ctx context.Context, limit, offset int) ([]domain.TripRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.TripRecord, error)
}

type TripSaver interface {
	Create(ctx context.Context, trip domain.Trip) (service.SaveResult, error)
	Update(ctx context.Context, tripID uuid.UUID, trip domain.Trip) (service.SaveResult, error)
}

type TripDeleter interface {
	Delete(ctx context.Context, tripID uuid.UUID) error
}

type TripHandlerConfig struct {
	Reader  TripReader
	Saver   TripSaver
	Deleter TripDeleter
	// MaxMemory bounds the multipart bytes held in memory; the rest spills to
	// temporary files.
	MaxMemory int64
}

type tripHandler struct {
	reader    TripReader
	saver     TripSaver
	deleter   TripDeleter
	maxMemory int64
}

func RegisterTrips(e *echo.Echo, auth Authenticator, cfg TripHandlerConfig) {
	h := &tripHandler{
		reader:    cfg.Reader,
		saver:     cfg.Saver,
		deleter:   cfg.Deleter,
		maxMemory: cfg.MaxMemory,
	}
	if h.maxMemory <= 0 {
		h.maxMemory = defaultMultipartMemory
	}

	group := e.Group("/api/v1/trips", RequireAuth(auth))
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.POST("", h.create)
	group.PUT("/:id", h.update)
	group.DELETE("/:id", h.delete)
}

// list godoc
// @Summary List trips
// @Tags Trips
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string][]TripResponse
// @Router /api/v1/trips [get]
func (h *tripHandler) list(c echo.Context) error {
	limit, offset := parsePagination(c, 50, 0)
	trips, err := h.reader.List(c.Request().Context(), limit, offset)
	if err != nil {
		return writeTripError(c, err)
	}
	out := make([]TripResponse, 0, len(trips))
	for i := range trips {
		out = append(out, toTripResponse(&trips[i]))
	}
	return c.JSON(http.StatusOK, util.Data("trips", out))
}

// get godoc
// @Summary Get a trip with its days, entities and media
// @Tags Trips
// @Security BearerAuth
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} map[string]TripResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/trips/{id} [get]
func (h *tripHandler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid trip id"))
	}
	trip, err := h.reader.Get(c.Request().Context(), id)
	if err != nil {
		return writeTripError(c, err)
	}
	return c.JSON(http.StatusOK, util.Data("trip", toTripResponse(trip)))
}

// create godoc
// @Summary Create a trip
// @Description Multipart form with a JSON "payload" field; file fields are referenced by name from the payload.
// @Tags Trips
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param payload formData string true "TripRequest JSON"
// @Success 201 {object} TripSaveResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/trips [post]
func (h *tripHandler) create(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	req, files, err := h.decodeTripRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	trip, err := buildTrip(req, files, nil, user)
	if errors.Is(err, errCreatorNotAllowed) {
		return c.JSON(http.StatusForbidden, util.Error(err.Error()))
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	res, err := h.saver.Create(c.Request().Context(), trip)
	if err != nil {
		return writeTripError(c, err)
	}
	return c.JSON(http.StatusCreated, toSaveResponse(res))
}

// update godoc
// @Summary Update a trip
// @Tags Trips
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Trip ID"
// @Param payload formData string true "TripRequest JSON"
// @Success 200 {object} TripSaveResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/trips/{id} [put]
func (h *tripHandler) update(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid trip id"))
	}
	req, files, err := h.decodeTripRequest(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	stored, err := h.reader.Get(c.Request().Context(), id)
	if err != nil {
		return writeTripError(c, err)
	}
	trip, err := buildTrip(req, files, stored, user)
	if errors.Is(err, errCreatorNotAllowed) {
		return c.JSON(http.StatusForbidden, util.Error(err.Error()))
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}
	res, err := h.saver.Update(c.Request().Context(), id, trip)
	if err != nil {
		return writeTripError(c, err)
	}
	return c.JSON(http.StatusOK, toSaveResponse(res))
}

// delete godoc
// @Summary Delete a trip and its media
// @Tags Trips
// @Security BearerAuth
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/trips/{id} [delete]
func (h *tripHandler) delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid trip id"))
	}
	if err := h.deleter.Delete(c.Request().Context(), id); err != nil {
		return writeTripError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// decodeTripRequest reads either a JSON body or a multipart form whose
// "payload" field holds the JSON document.
func (h *tripHandler) decodeTripRequest(c echo.Context) (TripRequest, map[string][]*multipart.FileHeader, error) {
	var req TripRequest
	if !isMultipart(c.Request().Header.Get(echo.HeaderContentType)) {
		if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
			return TripRequest{}, nil, errors.New("invalid request body")
		}
		return req, nil, nil
	}

	if err := c.Request().ParseMultipartForm(h.maxMemory); err != nil {
		return TripRequest{}, nil, errors.New("invalid multipart form")
	}
	form := c.Request().MultipartForm
	raw := ""
	if values := form.Value["payload"]; len(values) > 0 {
		raw = values[0]
	}
	if strings.TrimSpace(raw) == "" {
		return TripRequest{}, nil, errors.New("payload field is required")
	}
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return TripRequest{}, nil, errors.New("payload is not valid JSON")
	}

	files := form.File
	var total int64
	for _, headers := range files {
		for _, fh := range headers {
			total += fh.Size
		}
	}
	zerolog.Ctx(c.Request().Context()).Debug().
		Int("file_fields", len(files)).
		Int64("bytes", total).
		Msg("trip form decoded")
	return req, files, nil
}

var errCreatorNotAllowed = errors.New("only admins may assign a trip to another user")

// buildTrip turns a request into the editable tree through the copy-on-write
// edits. stored is the persisted trip on update and nil on create; existing
// media ids are resolved against it so ownership is checked against what the
// database holds. The creator defaults to the stored owner, then to user.
func buildTrip(req TripRequest, files map[string][]*multipart.FileHeader, stored *domain.TripRecord, user *domain.User) (domain.Trip, error) {
	trip := domain.Trip{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   user.ID,
		RemoveCover: req.RemoveCover,
	}

	index := map[uuid.UUID]domain.MediaRecord{}
	if stored != nil {
		id := stored.ID
		trip.ID = &id
		if stored.UserID != nil {
			trip.CreatorID = *stored.UserID
		}
		if stored.CoverImage != nil {
			cover, current := *stored.CoverImage, *stored.CoverImage
			trip.Cover, trip.StoredCover = &cover, &current
		}
		for _, day := range stored.Days {
			for _, media := range day.Media {
				index[media.ID] = media
			}
		}
	}

	if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			return domain.Trip{}, errors.New("invalid user_id")
		}
		if id != trip.CreatorID && !user.IsAdmin() {
			return domain.Trip{}, errCreatorNotAllowed
		}
		trip.CreatorID = id
	}

	if req.CoverFile != "" {
		cover, err := filesFor(files, req.CoverFile)
		if err != nil {
			return domain.Trip{}, err
		}
		trip.NewCover = &cover[0]
	}
	if req.CoverImage != "" {
		ref := domain.ParseMediaRef(req.CoverImage)
		trip.Cover = &ref
	}

	for d, dayReq := range req.Days {
		dayID, err := optionalID(dayReq.ID, "day id")
		if err != nil {
			return domain.Trip{}, err
		}
		existing, removed, err := resolveExisting(dayReq.Media, index)
		if err != nil {
			return domain.Trip{}, err
		}
		trip = trip.AddDay(domain.Day{ID: dayID, Title: dayReq.Title, Description: dayReq.Description, ExistingMedia: existing})
		if trip, err = addNewMedia(trip, files, dayReq.NewMedia, d, domain.RelationDay, 0); err != nil {
			return domain.Trip{}, err
		}

		for _, kind := range domain.EntityKinds {
			for e, entityReq := range entityRequests(dayReq, kind) {
				entityID, err := optionalID(entityReq.ID, string(kind)+" id")
				if err != nil {
					return domain.Trip{}, err
				}
				entityExisting, entityRemoved, err := resolveExisting(entityReq.Media, index)
				if err != nil {
					return domain.Trip{}, err
				}
				entity := domain.Entity{ID: entityID, Kind: kind, Title: entityReq.Title, Description: entityReq.Description, ExistingMedia: entityExisting}
				if trip, err = trip.AddEntity(d, entity); err != nil {
					return domain.Trip{}, err
				}
				if trip, err = addNewMedia(trip, files, entityReq.NewMedia, d, kind, e); err != nil {
					return domain.Trip{}, err
				}
				removed = append(removed, entityRemoved...)
			}
		}

		if trip, err = setFeatured(trip, d, dayReq, dayID, stored, index); err != nil {
			return domain.Trip{}, err
		}
		// Removing featured media clears the day's featured reference.
		for _, id := range removed {
			if trip, err = trip.MarkExistingRemoved(d, id); err != nil {
				return domain.Trip{}, err
			}
		}
	}
	return trip, nil
}

func entityRequests(day DayRequest, kind domain.Relation) []EntityRequest {
	switch kind {
	case domain.RelationActivity:
		return day.Activities
	case domain.RelationAttraction:
		return day.Attractions
	case domain.RelationAccommodation:
		return day.Accommodations
	}
	return nil
}

func addNewMedia(trip domain.Trip, files map[string][]*multipart.FileHeader, fields []string, day int, kind domain.Relation, entity int) (domain.Trip, error) {
	if len(fields) == 0 {
		return trip, nil
	}
	got, err := collectFiles(files, fields)
	if err != nil {
		return trip, err
	}
	return trip.AddNewMedia(day, kind, entity, got...)
}

// setFeatured applies the day's featured selection. A new file is picked by
// index; a persisted row must belong to the same stored day. Persisted rows
// are ignored on create.
func setFeatured(trip domain.Trip, d int, req DayRequest, dayID *uuid.UUID, stored *domain.TripRecord, index map[uuid.UUID]domain.MediaRecord) (domain.Trip, error) {
	if req.FeatureMediaIndex != nil {
		out, err := trip.SetFeaturedNew(d, *req.FeatureMediaIndex)
		if err != nil {
			return trip, fmt.Errorf("feature_media_index %d is out of range for day %d", *req.FeatureMediaIndex, d)
		}
		return out, nil
	}
	id, err := optionalID(req.FeatureMediaID, "feature_media_id")
	if err != nil || id == nil || stored == nil {
		return trip, err
	}
	if record, ok := index[*id]; !ok || dayID == nil || record.DayID != *dayID {
		return trip, fmt.Errorf("feature_media_id %s is not media of day %d", *id, d)
	}
	out, err := trip.SetFeaturedExisting(d, *id)
	if err != nil {
		return trip, fmt.Errorf("feature_media_id %s: %w", *id, err)
	}
	return out, nil
}

func optionalID(raw, field string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", field, raw)
	}
	return &id, nil
}

// resolveExisting looks the listed media up in the stored trip. Every row is
// returned kept; the ids sent with keep=false are returned separately so the
// caller can mark them through the tree edits.
func resolveExisting(items []MediaKeepRequest, index map[uuid.UUID]domain.MediaRecord) ([]domain.ExistingMedia, []uuid.UUID, error) {
	if len(items) == 0 {
		return nil, nil, nil
	}
	out := make([]domain.ExistingMedia, 0, len(items))
	var removed []uuid.UUID
	for _, item := range items {
		id, err := uuid.Parse(item.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid media id %q", item.ID)
		}
		record, ok := index[id]
		if !ok {
			return nil, nil, fmt.Errorf("media %s does not belong to this trip", id)
		}
		relation, owner, err := record.Owner()
		if err != nil {
			return nil, nil, err
		}
		out = append(out, domain.ExistingMedia{
			ID:       id,
			Ref:      record.URL,
			Type:     record.Type(),
			Keep:     true,
			Relation: relation,
			OwnerID:  owner,
		})
		if !item.Keep {
			removed = append(removed, id)
		}
	}
	return out, removed, nil
}

func collectFiles(files map[string][]*multipart.FileHeader, fields []string) ([]domain.LocalFile, error) {
	var out []domain.LocalFile
	for _, field := range fields {
		got, err := filesFor(files, field)
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	return out, nil
}

// filesFor returns every file sent under field, in form order.
func filesFor(files map[string][]*multipart.FileHeader, field string) ([]domain.LocalFile, error) {
	headers := files[field]
	if len(headers) == 0 {
		return nil, fmt.Errorf("missing file field %q", field)
	}
	out := make([]domain.LocalFile, 0, len(headers))
	for _, fh := range headers {
		out = append(out, localFile(fh))
	}
	return out, nil
}

func localFile(fh *multipart.FileHeader) domain.LocalFile {
	return domain.LocalFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

func writeTripError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrTripValidation):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case errors.Is(err, service.ErrTripNotFound):
		return c.JSON(http.StatusNotFound, util.Error("trip not found"))
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrSessionExpired):
		return c.JSON(http.StatusUnauthorized, util.Error(err.Error()))
	case errors.Is(err, postgres.ErrInvalidReference):
		return c.JSON(http.StatusBadRequest, util.Error("trip references a day, entity or media it does not own"))
	}
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("trip request failed")
	switch {
	case errors.Is(err, service.ErrTripPersistence):
		return c.JSON(http.StatusInternalServerError, util.Error(service.ErrTripPersistence.Error()))
	case errors.Is(err, service.ErrTripDelete):
		return c.JSON(http.StatusInternalServerError, util.Error(service.ErrTripDelete.Error()))
	}
	return c.JSON(http.StatusInternalServerError, util.Error("unable to process trip"))
}

func toSaveResponse(res service.SaveResult) TripSaveResponse {
	failed := res.FailedUploads
	if failed == nil {
		failed = []string{}
	}
	return TripSaveResponse{
		TripID:        res.TripID.String(),
		Uploaded:      res.Uploaded,
		FailedUploads: failed,
		RemovedMedia:  res.RemovedMedia,
	}
}

func toTripResponse(trip *domain.TripRecord) TripResponse {
	out := TripResponse{
		ID:          trip.ID.String(),
		Title:       trip.Title,
		Description: trip.Description,
		CreatedAt:   trip.CreatedAt,
		UpdatedAt:   trip.UpdatedAt,
		Days:        make([]DayResponse, 0, len(trip.Days)),
	}
	if trip.CoverImage != nil && !trip.CoverImage.IsZero() {
		url := trip.CoverImage.URL
		out.CoverImage = &url
	}
	if trip.UserID != nil {
		id := trip.UserID.String()
		out.UserID = &id
	}
	for _, day := range trip.Days {
		out.Days = append(out.Days, toDayResponse(day))
	}
	return out
}

func toDayResponse(day domain.DayRecord) DayResponse {
	out := DayResponse{
		ID:             day.ID.String(),
		Title:          day.Title,
		Description:    day.Description,
		OrderIndex:     day.OrderIndex,
		Media:          toMediaResponses(day.MediaFor(domain.RelationDay, day.ID)),
		Activities:     toEntityResponses(day, day.Activities, domain.RelationActivity),
		Attractions:    toEntityResponses(day, day.Attractions, domain.RelationAttraction),
		Accommodations: toEntityResponses(day, day.Accommodations, domain.RelationAccommodation),
	}
	if orphans := day.OrphanMedia(); len(orphans) > 0 {
		out.UnassignedMedia = toMediaResponses(orphans)
	}
	if day.FeatureMediaID != nil {
		for _, media := range day.Media {
			if media.ID == *day.FeatureMediaID {
				featured := toMediaResponse(media)
				out.FeatureMedia = &featured
				break
			}
		}
	}
	return out
}

func toEntityResponses(day domain.DayRecord, entities []domain.EntityRecord, kind domain.Relation) []EntityResponse {
	out := make([]EntityResponse, 0, len(entities))
	for _, entity := range entities {
		out = append(out, EntityResponse{
			ID:          entity.ID.String(),
			Title:       entity.Title,
			Description: entity.Description,
			Media:       toMediaResponses(day.MediaFor(kind, entity.ID)),
		})
	}
	return out
}

func toMediaResponses(records []domain.MediaRecord) []MediaResponse {
	out := make([]MediaResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toMediaResponse(record))
	}
	return out
}

func toMediaResponse(record domain.MediaRecord) MediaResponse {
	return MediaResponse{ID: record.ID.String(), URL: record.URL.URL, Type: record.Type()}
}
