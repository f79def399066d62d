package ports

import (
	"context"
	"errors"
	"io"
)

// ErrObjectExists is returned by Upload when the object name is already taken.
var ErrObjectExists = errors.New("object already exists")

type ObjectStorage interface {
	// Upload stores the object without overwriting an existing one.
	Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) error
	Remove(ctx context.Context, bucket string, objectNames []string) error
	PublicURL(bucket, objectName string) string
	// EnsureBucket creates the bucket with public read access when missing.
	EnsureBucket(ctx context.Context, bucket string) error
}
