package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"clientsdb/storage"
)

// SQLSTATE codes for the constraints the registry relies on
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	stringTooLong       = "22001"
)

// sqlState extracts the SQLSTATE code from either supported driver's error
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}

// classify tags constraint violations with the matching storage sentinel while
// keeping the driver diagnostic in the chain
func classify(err error) error {
	switch sqlState(err) {
	case uniqueViolation:
		return fmt.Errorf("%w: %w", storage.ErrDuplicateEmail, err)
	case foreignKeyViolation:
		return fmt.Errorf("%w: %w", storage.ErrClientNotFound, err)
	case stringTooLong:
		return fmt.Errorf("%w: %w", storage.ErrValueTooLong, err)
	}

	return err
}
