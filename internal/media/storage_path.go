package media

import (
	"net/url"
	"strings"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
)

// MaxRemoveBatch is the largest number of object names sent in one removal call.
const MaxRemoveBatch = 100

// StoragePath returns the bucket-relative object path for a stored media
// reference, or false when the URL does not live in bucket. The first
// "/<bucket>/" path segment marks the start of the object path.
func StoragePath(ref domain.MediaRef, bucket string) (string, bool) {
	raw := strings.TrimSpace(ref.URL)
	bucket = strings.Trim(strings.TrimSpace(bucket), "/")
	if raw == "" || bucket == "" {
		return "", false
	}
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	raw = "/" + strings.TrimLeft(raw, "/")
	marker := "/" + bucket + "/"
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return "", false
	}
	path := raw[idx+len(marker):]
	if path == "" {
		return "", false
	}
	return path, true
}

// ObjectRef names one stored object.
type ObjectRef struct {
	Bucket string
	Path   string
}

// LocateObject classifies a URL against the candidate buckets and returns the
// first bucket whose pattern matches.
func LocateObject(ref domain.MediaRef, buckets ...string) (ObjectRef, bool) {
	for _, bucket := range buckets {
		if path, ok := StoragePath(ref, bucket); ok {
			return ObjectRef{Bucket: bucket, Path: path}, true
		}
	}
	return ObjectRef{}, false
}

// GroupByBucket collects object paths per bucket, keeping first-seen order and
// dropping duplicates.
func GroupByBucket(objects []ObjectRef) map[string][]string {
	out := make(map[string][]string)
	seen := make(map[ObjectRef]struct{}, len(objects))
	for _, obj := range objects {
		if _, dup := seen[obj]; dup {
			continue
		}
		seen[obj] = struct{}{}
		out[obj.Bucket] = append(out[obj.Bucket], obj.Path)
	}
	return out
}

// Chunk splits paths into consecutive batches of at most size items.
func Chunk(paths []string, size int) [][]string {
	if size <= 0 {
		size = MaxRemoveBatch
	}
	var out [][]string
	for start := 0; start < len(paths); start += size {
		end := start + size
		if end > len(paths) {
			end = len(paths)
		}
		out = append(out, paths[start:end])
	}
	return out
}
