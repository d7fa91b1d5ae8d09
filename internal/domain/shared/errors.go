package shared

import "errors"

// Error categories. Typed domain errors report their category through Is so
// callers can branch on the category without knowing the concrete type.
var (
	ErrValidation   = errors.New("validation failed")
	ErrPrecondition = errors.New("precondition failed")
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
)

// ValidationError describes bad input detected before any database transaction opens
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return "validation failed: " + e.Field + " " + e.Reason
}

// Is implements the errors.Is interface for ValidationError
func (e ValidationError) Is(target error) bool {
	if target == ErrValidation {
		return true
	}
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	// An empty target matches any ValidationError
	return t == ValidationError{} || t == e
}

// NewValidationError creates a ValidationError for the given field
func NewValidationError(field, reason string) error {
	return ValidationError{Field: field, Reason: reason}
}
