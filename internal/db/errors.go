package db

import (
	"errors"
	"strings"
)

// Error taxonomy for the store. Callers branch with errors.Is; the wrapped
// message carries the operation and entity id.
var (
	// ErrNotFound is returned when a referenced id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on uniqueness violations, such as two repos
	// claiming the same local clone path.
	ErrConflict = errors.New("conflict")
	// ErrValidation is returned for malformed input before any write.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition is returned for an illegal status change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// isUniqueViolation detects a SQLite UNIQUE constraint failure. The modernc
// driver surfaces constraint errors by message, not by a typed error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
