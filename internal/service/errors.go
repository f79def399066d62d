package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTripValidation     = errors.New("trip validation failed")
	ErrTripPersistence    = errors.New("trip could not be saved")
	ErrTripNotFound       = errors.New("trip not found")
	ErrTripDelete         = errors.New("trip could not be deleted")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionExpired     = errors.New("session expired or revoked")
)

// CleanupFailure records storage objects that could not be removed during a
// rollback or cleanup. It is logged and counted but never returned to callers
// of a save or delete.
type CleanupFailure struct {
	Bucket string
	Paths  []string
	Err    error
}

func (e *CleanupFailure) Error() string {
	return fmt.Sprintf("remove %d object(s) from %s [%s]: %v", len(e.Paths), e.Bucket, strings.Join(e.Paths, ", "), e.Err)
}

func (e *CleanupFailure) Unwrap() error {
	return e.Err
}
