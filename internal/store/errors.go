package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Error is a store failure: connectivity, constraint violation, or any
// other driver-level problem. It always triggers rollback of the
// surrounding transaction and is never silently retried.
type Error struct {
	// Op describes the failed operation.
	Op string

	// Table is the affected relation, if any.
	Table string

	// Err is the underlying driver error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("store: %s %q: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// IsStoreError returns true if the error is a store error.
// Uses errors.As to handle wrapped errors.
func IsStoreError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// IsConstraint reports whether the error is a SQLite constraint
// violation (primary key, unique, not null).
func IsConstraint(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint
	}
	return false
}
