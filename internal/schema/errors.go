package schema

import (
	"errors"
	"fmt"
)

// ConfigError reports an invalid hashing or table configuration. It is
// detected at registration time and fatal: a registry is never built
// from an invalid definition.
type ConfigError struct {
	// Table is the identity of the offending table.
	Table string

	// Field names the configuration field at fault.
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("table %q: %s: %s", e.Table, e.Field, e.Message)
	}
	return fmt.Sprintf("table %q: %s", e.Table, e.Message)
}

// IsConfigError returns true if the error is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func configError(table, field, format string, args ...any) *ConfigError {
	return &ConfigError{Table: table, Field: field, Message: fmt.Sprintf(format, args...)}
}
