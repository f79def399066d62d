package minio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/multierr"

	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/ports"
)

const publicReadPolicy = `{
  "Version": "2012-10-17",
  "Statement": [{
    "Effect": "Allow",
    "Principal": {"AWS": ["*"]},
    "Action": ["s3:GetObject"],
    "Resource": ["arn:aws:s3:::%s/*"]
  }]
}`

func NewClient(endpoint, key, secret string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(key, secret, ""),
		Secure: useSSL,
	})
}

// Storage implements ports.ObjectStorage on a MinIO (or any S3 compatible)
// endpoint. Public URLs are "<publicBase>/<bucket>/<object>".
type Storage struct {
	client     *minio.Client
	publicBase string
}

var _ ports.ObjectStorage = (*Storage)(nil)

func NewStorage(client *minio.Client, publicBase string) *Storage {
	base := strings.TrimRight(strings.TrimSpace(publicBase), "/")
	if base == "" && client != nil {
		base = strings.TrimRight(client.EndpointURL().String(), "/")
	}
	return &Storage{client: client, publicBase: base}
}

func (s *Storage) Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) error {
	if _, err := s.client.StatObject(ctx, bucket, objectName, minio.StatObjectOptions{}); err == nil {
		return fmt.Errorf("%w: %s/%s", ports.ErrObjectExists, bucket, objectName)
	} else if code := minio.ToErrorResponse(err).Code; code != "NoSuchKey" && code != "NoSuchObject" {
		return fmt.Errorf("stat %s/%s: %w", bucket, objectName, err)
	}

	_, err := s.client.PutObject(ctx, bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, objectName, err)
	}
	return nil
}

// Remove deletes objectNames in one multi-object call and reports every
// per-object failure.
func (s *Storage) Remove(ctx context.Context, bucket string, objectNames []string) error {
	if len(objectNames) == 0 {
		return nil
	}
	objects := make(chan minio.ObjectInfo, len(objectNames))
	for _, name := range objectNames {
		objects <- minio.ObjectInfo{Key: name}
	}
	close(objects)

	var errs error
	for result := range s.client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		if result.Err != nil {
			errs = multierr.Append(errs, fmt.Errorf("remove %s/%s: %w", bucket, result.ObjectName, result.Err))
		}
	}
	return errs
}

func (s *Storage) PublicURL(bucket, objectName string) string {
	return s.publicBase + "/" + strings.Trim(bucket, "/") + "/" + strings.TrimLeft(objectName, "/")
}

func (s *Storage) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			switch minio.ToErrorResponse(err).Code {
			case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			default:
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	if err := s.client.SetBucketPolicy(ctx, bucket, fmt.Sprintf(publicReadPolicy, bucket)); err != nil {
		return fmt.Errorf("set bucket policy %s: %w", bucket, err)
	}
	return nil
}
