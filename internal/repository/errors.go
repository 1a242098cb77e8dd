package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a write was rejected by a uniqueness constraint.
	ErrConflict = errors.New("repository: conflict")
)

// Conflicting columns reported by ConflictError.
const (
	ColumnUsername = "username"
	ColumnEmail    = "email"
	ColumnPhone    = "phone"
)

// ConflictError names the unique column that rejected a write. It unwraps to ErrConflict.
type ConflictError struct {
	Column string
}

func (e *ConflictError) Error() string {
	if e == nil || e.Column == "" {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("%s on %s", ErrConflict, e.Column)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
