package upload

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// BucketEnsurer creates a bucket when it is missing.
type BucketEnsurer interface {
	EnsureBucket(ctx context.Context, bucket string) error
}

// BucketCache remembers buckets known to exist. Entries expire after ttl so a
// bucket removed out of band is recreated on a later upload; concurrent checks
// of the same bucket share one call.
type BucketCache struct {
	known  *gocache.Cache
	flight singleflight.Group
}

func NewBucketCache(ttl time.Duration) *BucketCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &BucketCache{known: gocache.New(ttl, 2*ttl)}
}

// Ensure runs ensurer once per bucket until the cache entry expires. Failures
// are not cached.
func (c *BucketCache) Ensure(ctx context.Context, ensurer BucketEnsurer, bucket string) error {
	if _, ok := c.known.Get(bucket); ok {
		return nil
	}
	_, err, _ := c.flight.Do(bucket, func() (any, error) {
		if _, ok := c.known.Get(bucket); ok {
			return nil, nil
		}
		if err := ensurer.EnsureBucket(ctx, bucket); err != nil {
			return nil, err
		}
		c.known.SetDefault(bucket, struct{}{})
		return nil, nil
	})
	return err
}
