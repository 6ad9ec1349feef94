package schedule

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for unknown series ids and for series owned by
// someone else.
var ErrNotFound = errors.New("event not found")

// ValidationError rejects malformed input before any write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidScopeError rejects a scope that cannot apply to the target series,
// such as a single-occurrence edit on a series that does not repeat or an
// occurrence date the series never produces.
type InvalidScopeError struct {
	Scope  string
	Reason string
}

func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("invalid scope %q: %s", e.Scope, e.Reason)
}

func invalidScope(scope Scope, format string, args ...any) error {
	name := ""
	if scope != nil {
		name = scope.String()
	}
	return &InvalidScopeError{Scope: name, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsInvalidScope reports whether err is or wraps an *InvalidScopeError.
func IsInvalidScope(err error) bool {
	var s *InvalidScopeError
	return errors.As(err, &s)
}
