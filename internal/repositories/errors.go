package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrVersionConflict is returned when an optimistic save loses the race
// against a concurrent writer. Callers retry with freshly loaded state.
var ErrVersionConflict = errors.New("record was modified concurrently")

// IsNotFoundError reports whether the error represents a missing row.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsConflictError reports whether the error is an optimistic locking loss.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
