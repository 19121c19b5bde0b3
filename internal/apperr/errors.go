// Package apperr defines sentinel errors shared across service and API layers.
package apperr

import "errors"

var (
	// ErrNotFound marks a lookup for a directive that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a conditional write that lost to a concurrent update.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyExists marks an insert colliding with an existing record.
	ErrAlreadyExists = errors.New("already exists")
)
