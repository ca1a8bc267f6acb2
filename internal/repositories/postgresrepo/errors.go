package postgresrepo

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"csc-ledger/internal/models"
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// mapPQError turns races the database resolved for us into ErrConcurrencyConflict,
// so the caller re-runs the operation and observes the winner's state.
func mapPQError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation, pqSerializationFailure, pqDeadlockDetected:
			return fmt.Errorf("%s: %w (%s %s)", op, models.ErrConcurrencyConflict, pqErr.Code, pqErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isRowID reports whether id can name a row; ids are UUID columns, so anything
// else is simply unknown rather than a query error.
func isRowID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
