package fop

import (
	"errors"
	"fmt"
)

// ErrValidation matches every ValidationError.
var ErrValidation = errors.New("query validation failed")

// ValidationError reports a malformed query before it reaches a store.
type ValidationError struct {
	// Path locates the offending argument, e.g. "where.plants.some.name".
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "invalid query: " + e.Reason
	}
	return fmt.Sprintf("invalid query at %s: %s", e.Path, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(path, format string, args ...any) error {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func join(path, elem string) string {
	if path == "" {
		return elem
	}
	return path + "." + elem
}
