package service

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rrrobertsson/airmango-admin-panel/internal/media"
	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/ports"
)

// removeObjectBatches removes the grouped paths in batches of at most
// media.MaxRemoveBatch, all batches concurrently. Every batch settles before it
// returns; the failed batches are returned as CleanupFailures.
func removeObjectBatches(ctx context.Context, storage ports.ObjectStorage, groups map[string][]string) []error {
	buckets := make([]string, 0, len(groups))
	for bucket := range groups {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)

	var (
		mu       sync.Mutex
		failures []error
	)
	var g errgroup.Group
	for _, bucket := range buckets {
		for _, batch := range media.Chunk(groups[bucket], media.MaxRemoveBatch) {
			g.Go(func() error {
				if err := storage.Remove(ctx, bucket, batch); err != nil {
					mu.Lock()
					failures = append(failures, &CleanupFailure{Bucket: bucket, Paths: batch, Err: err})
					mu.Unlock()
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	return failures
}
