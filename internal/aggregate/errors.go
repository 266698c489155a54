package aggregate

import (
	"errors"
	"fmt"
)

// Error represents a failure detected by the aggregate protocol.
//
// Aggregate errors include:
//   - Hash collision: an existing digest maps to different content
//   - Duplicate hash: identical content already recorded under a part
//   - Ambiguous part: a lookup matched rows in more than one part
//   - Not found: a lookup matched no part rows
//
// Error includes structured fields for diagnostics; validation problems
// with table definitions themselves surface as schema.ConfigError
// instead.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Table identifies the affected table.
	Table string

	// Digest is the digest involved, when known.
	Digest string

	// Parts lists the part tables involved (for ambiguity errors).
	Parts []string
}

// ErrorCode categorizes aggregate errors.
type ErrorCode string

const (
	// ErrCodeHashCollision indicates an existing digest maps to
	// different content than the candidate rows.
	ErrCodeHashCollision ErrorCode = "HASH_COLLISION"

	// ErrCodeDuplicateHash indicates identical content is already
	// recorded under the same digest.
	ErrCodeDuplicateHash ErrorCode = "DUPLICATE_HASH"

	// ErrCodeAmbiguousPart indicates a lookup matched rows in more
	// than one part table.
	ErrCodeAmbiguousPart ErrorCode = "AMBIGUOUS_PART"

	// ErrCodeNotFound indicates a lookup matched no part rows.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeHashSupplied indicates an insert tried to provide the
	// hash attribute directly instead of letting it be derived.
	ErrCodeHashSupplied ErrorCode = "HASH_SUPPLIED"

	// ErrCodeInvalidTarget indicates an operation was invoked on a
	// table of the wrong kind, such as a master insert via a table
	// that is not a part.
	ErrCodeInvalidTarget ErrorCode = "INVALID_TARGET"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Table != "" && e.Digest != "" {
		return fmt.Sprintf("%s: %s (table=%s, digest=%s)", e.Code, e.Message, e.Table, e.Digest)
	}
	if e.Table != "" {
		return fmt.Sprintf("%s: %s (table=%s)", e.Code, e.Message, e.Table)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsHashCollision returns true if the error is a hash collision error.
// Uses errors.As to handle wrapped errors.
func IsHashCollision(err error) bool {
	return hasCode(err, ErrCodeHashCollision)
}

// IsDuplicateHash returns true if the error reports already-recorded
// identical content.
func IsDuplicateHash(err error) bool {
	return hasCode(err, ErrCodeDuplicateHash)
}

// IsAmbiguousPart returns true if the error is an ambiguous part
// lookup error.
func IsAmbiguousPart(err error) bool {
	return hasCode(err, ErrCodeAmbiguousPart)
}

// IsNotFound returns true if the error is a not-found lookup error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

func hasCode(err error, code ErrorCode) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
