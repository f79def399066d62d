package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
	"github.com/rrrobertsson/airmango-admin-panel/internal/media"
	"github.com/rrrobertsson/airmango-admin-panel/internal/metrics"
	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/ports"
)

var ErrNoContent = errors.New("file has no content")

// Request is one file headed for bucket under the optional folder prefix. Tag
// is opaque to this package and echoed on the matching Result.
type Request struct {
	File   domain.LocalFile
	Bucket string
	Folder string
	Tag    string
}

// Result describes a stored object. Bucket and Path always name the object
// that was written, so a caller can remove it without guessing.
type Result struct {
	Tag    string
	URL    string
	Type   domain.MediaType
	Bucket string
	Path   string
	Err    error
}

func (r Result) OK() bool {
	return r.Err == nil && r.URL != ""
}

// UploadFailure reports a file that could not be stored through any transport.
type UploadFailure struct {
	FileName string
	Err      error
}

func (e *UploadFailure) Error() string {
	return fmt.Sprintf("upload %q failed: %v", e.FileName, e.Err)
}

func (e *UploadFailure) Unwrap() error {
	return e.Err
}

// Transport stores a single file.
type Transport interface {
	Upload(ctx context.Context, req Request) (Result, error)
}

type UploaderConfig struct {
	// Name labels the transport in logs and metrics.
	Name     string
	Fallback Transport
	Buckets  *BucketCache
	Metrics  *metrics.UploadMetrics
}

// Uploader writes files straight to object storage and hands a rejected file
// to the fallback transport before giving up on it.
type Uploader struct {
	storage  ports.ObjectStorage
	fallback Transport
	buckets  *BucketCache
	metrics  *metrics.UploadMetrics
	name     string
	newName  func(string) string
}

func NewUploader(storage ports.ObjectStorage, cfg UploaderConfig) *Uploader {
	name := cfg.Name
	if name == "" {
		name = "direct"
	}
	buckets := cfg.Buckets
	if buckets == nil {
		buckets = NewBucketCache(0)
	}
	return &Uploader{
		storage:  storage,
		fallback: cfg.Fallback,
		buckets:  buckets,
		metrics:  cfg.Metrics,
		name:     name,
		newName:  media.SafeName,
	}
}

func (u *Uploader) Upload(ctx context.Context, req Request) (Result, error) {
	res, err := u.put(ctx, req)
	u.metrics.Observe(u.name, err, req.File.Size)
	if err == nil {
		return res, nil
	}
	if u.fallback == nil {
		return Result{Tag: req.Tag}, &UploadFailure{FileName: req.File.Name, Err: err}
	}

	zerolog.Ctx(ctx).Warn().
		Err(err).
		Str("file", req.File.Name).
		Str("bucket", req.Bucket).
		Str("transport", u.name).
		Msg("direct upload rejected, retrying through fallback")
	u.metrics.IncFallback()

	res, fbErr := u.fallback.Upload(ctx, req)
	if fbErr != nil {
		var failure *UploadFailure
		if errors.As(fbErr, &failure) {
			fbErr = failure.Err
		}
		return Result{Tag: req.Tag}, &UploadFailure{FileName: req.File.Name, Err: multierr.Combine(err, fbErr)}
	}
	res.Tag = req.Tag
	return res, nil
}

func (u *Uploader) put(ctx context.Context, req Request) (Result, error) {
	if req.File.Open == nil {
		return Result{}, ErrNoContent
	}
	if err := u.buckets.Ensure(ctx, u.storage, req.Bucket); err != nil {
		// A failed bucket check does not block the put.
		zerolog.Ctx(ctx).Warn().Err(err).Str("bucket", req.Bucket).Msg("ensure bucket failed")
	}

	contentType := media.ResolveContentType(req.File)
	path := media.ObjectPath(req.Folder, u.newName(req.File.Name))

	rc, err := req.File.Open()
	if err != nil {
		return Result{}, fmt.Errorf("open %q: %w", req.File.Name, err)
	}
	defer rc.Close()

	size := req.File.Size
	if size <= 0 {
		size = -1
	}
	if err := u.storage.Upload(ctx, req.Bucket, path, contentType, rc, size); err != nil {
		return Result{}, err
	}
	return Result{
		Tag:    req.Tag,
		URL:    u.storage.PublicURL(req.Bucket, path),
		Type:   media.TypeFromContentType(contentType),
		Bucket: req.Bucket,
		Path:   path,
	}, nil
}
