package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDuplicate        = errors.New("duplicate record")
	ErrInvalidReference = errors.New("invalid reference")
)

// classify maps driver errors onto errors callers can test with errors.Is.
// The original error stays in the chain.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "P0002":
		return fmt.Errorf("%w: %w", sql.ErrNoRows, err)
	case "23505":
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case "23503":
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	return err
}
