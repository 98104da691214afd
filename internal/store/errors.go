package store

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique constraint other
// than the primary key, e.g. a duplicate email.
var ErrConflict = errors.New("conflict")

// ErrDuplicateID is returned when an insert collides on the primary key.
var ErrDuplicateID = errors.New("duplicate id")

const uniqueViolation = "23505"

// mapError translates driver errors into store sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if strings.HasSuffix(pqErr.Constraint, "_pkey") {
			return ErrDuplicateID
		}
		return ErrConflict
	}
	return err
}
