package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrNoURL = errors.New("transport returned no url")

// Authenticator verifies the caller may upload. It is consulted once per batch.
type Authenticator interface {
	EnsureAuthenticated(ctx context.Context) error
}

// Coordinator uploads a batch concurrently. results[i] always answers
// requests[i]; a failed item never cancels or delays its siblings.
type Coordinator struct {
	auth      Authenticator
	transport Transport
	limit     int
}

// NewCoordinator returns a coordinator running at most limit uploads at once;
// limit <= 0 runs the whole batch at once.
func NewCoordinator(auth Authenticator, transport Transport, limit int) *Coordinator {
	return &Coordinator{auth: auth, transport: transport, limit: limit}
}

// UploadAll returns an error only when the batch is rejected as a whole, in
// which case nothing was uploaded. Per-item failures are reported in
// Result.Err.
func (c *Coordinator) UploadAll(ctx context.Context, requests []Request) ([]Result, error) {
	if len(requests) == 0 {
		return nil, nil
	}
	if c.auth != nil {
		if err := c.auth.EnsureAuthenticated(ctx); err != nil {
			return nil, fmt.Errorf("upload batch: %w", err)
		}
	}

	results := make([]Result, len(requests))
	var g errgroup.Group
	if c.limit > 0 {
		g.SetLimit(c.limit)
	}
	for i, req := range requests {
		g.Go(func() error {
			res, err := c.transport.Upload(ctx, req)
			res.Tag = req.Tag
			if err == nil && res.URL == "" {
				err = &UploadFailure{FileName: req.File.Name, Err: ErrNoURL}
			}
			if err != nil {
				res = Result{Tag: req.Tag, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if !res.OK() {
			failed++
		}
	}
	zerolog.Ctx(ctx).Debug().
		Int("files", len(requests)).
		Int("failed", failed).
		Msg("upload batch settled")
	return results, nil
}

// Succeeded returns the results that produced a stored object.
func Succeeded(results []Result) []Result {
	out := make([]Result, 0, len(results))
	for _, res := range results {
		if res.OK() {
			out = append(out, res)
		}
	}
	return out
}
