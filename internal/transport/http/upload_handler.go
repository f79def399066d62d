package http

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rrrobertsson/airmango-admin-panel/internal/upload"
	"github.com/rrrobertsson/airmango-admin-panel/internal/util"
)

const maxRelayFiles = 100

type BatchUploader interface {
	UploadAll(ctx context.Context, requests []upload.Request) ([]upload.Result, error)
}

type UploadHandlerConfig struct {
	Uploader BatchUploader
	// Buckets lists the buckets callers may write to.
	Buckets   []string
	MaxMemory int64
}

type uploadHandler struct {
	uploader  BatchUploader
	buckets   map[string]struct{}
	maxMemory int64
}

// relayItem is one decoded form slot. err is set when the slot is unusable.
type relayItem struct {
	request upload.Request
	err     error
}

func RegisterUploads(e *echo.Echo, auth Authenticator, cfg UploadHandlerConfig) {
	h := &uploadHandler{
		uploader:  cfg.Uploader,
		buckets:   make(map[string]struct{}, len(cfg.Buckets)),
		maxMemory: cfg.MaxMemory,
	}
	for _, bucket := range cfg.Buckets {
		h.buckets[bucket] = struct{}{}
	}
	if h.maxMemory <= 0 {
		h.maxMemory = defaultMultipartMemory
	}
	e.POST(upload.RelayPath, h.bulk, RequireAuth(auth))
}

// bulk godoc
// @Summary Upload files to object storage through the server
// @Description Either totalFiles with file_i, bucket_i and folder_i fields, or a single file, bucket and folder. Results are aligned with the submitted files.
// @Tags Uploads
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} upload.RelayResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/uploads/bulk [post]
func (h *uploadHandler) bulk(c echo.Context) error {
	if err := c.Request().ParseMultipartForm(h.maxMemory); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid multipart form"))
	}
	items, err := h.decodeRelayForm(c.Request().MultipartForm)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	}

	var (
		requests []upload.Request
		slots    []int
	)
	for i, item := range items {
		if item.err == nil {
			requests = append(requests, item.request)
			slots = append(slots, i)
		}
	}

	ctx := c.Request().Context()
	results, err := h.uploader.UploadAll(ctx, requests)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("relay batch rejected")
		return c.JSON(http.StatusBadGateway, util.Error("upload batch failed"))
	}

	resp := upload.RelayResponse{Results: make([]upload.RelayItem, len(items))}
	for i, item := range items {
		if item.err != nil {
			resp.Results[i] = upload.RelayItem{Error: item.err.Error()}
		}
	}
	for k, res := range results {
		i := slots[k]
		if !res.OK() {
			msg := "upload failed"
			if res.Err != nil {
				msg = res.Err.Error()
			}
			resp.Results[i] = upload.RelayItem{Error: msg}
			continue
		}
		resp.Results[i] = upload.RelayItem{URL: res.URL, Type: res.Type, Bucket: res.Bucket, Path: res.Path}
		resp.Count++
	}
	resp.Success = resp.Count == len(items)

	zerolog.Ctx(ctx).Info().
		Int("files", len(items)).
		Int("stored", resp.Count).
		Msg("relay upload settled")
	return c.JSON(http.StatusOK, resp)
}

func (h *uploadHandler) decodeRelayForm(form *multipart.Form) ([]relayItem, error) {
	total := strings.TrimSpace(formValue(form, "totalFiles"))
	if total == "" {
		file := firstFile(form, "file")
		if file == nil {
			return nil, fmt.Errorf("file field is required")
		}
		return []relayItem{h.relayItem(file, formValue(form, "bucket"), formValue(form, "folder"))}, nil
	}

	n, err := strconv.Atoi(total)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("totalFiles must be a positive integer")
	}
	if n > maxRelayFiles {
		return nil, fmt.Errorf("at most %d files per request", maxRelayFiles)
	}
	items := make([]relayItem, n)
	for i := range n {
		suffix := "_" + strconv.Itoa(i)
		file := firstFile(form, "file"+suffix)
		if file == nil {
			items[i] = relayItem{err: fmt.Errorf("missing file%s", suffix)}
			continue
		}
		items[i] = h.relayItem(file, formValue(form, "bucket"+suffix), formValue(form, "folder"+suffix))
	}
	return items, nil
}

func (h *uploadHandler) relayItem(file *multipart.FileHeader, bucket, folder string) relayItem {
	bucket = strings.TrimSpace(bucket)
	if _, ok := h.buckets[bucket]; !ok {
		return relayItem{err: fmt.Errorf("unknown bucket %q", bucket)}
	}
	return relayItem{request: upload.Request{
		File:   localFile(file),
		Bucket: bucket,
		Folder: strings.Trim(strings.TrimSpace(folder), "/"),
	}}
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func firstFile(form *multipart.Form, key string) *multipart.FileHeader {
	if files := form.File[key]; len(files) > 0 {
		return files[0]
	}
	return nil
}
