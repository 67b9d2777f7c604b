// Package apperror defines the error taxonomy shared by the store, the
// services and the HTTP layer.
//
// TWO LAYERS:
//   - Sentinel errors (ErrNotFound, ErrUniqueness, ...) name the KIND of failure.
//     Callers branch on them with errors.Is.
//   - *AppError carries the human-readable message and, optionally, the field
//     that caused it. It unwraps to its sentinel.
//
// The store raises the three integrity kinds (uniqueness, referential
// integrity, constraint). Services add validation, not-found, forbidden and
// unauthorized. Nothing in this package knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// Integrity violations reported by the store.
	ErrUniqueness           = errors.New("uniqueness violation")
	ErrReferentialIntegrity = errors.New("referential integrity violation")
	ErrConstraint           = errors.New("constraint violation")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

// NotFoundBy is NotFound for lookups by something other than the primary key.
func NotFoundBy(resource, key string, value any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with %s %v", resource, key, value),
		Field:   key,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// UniquenessViolation reports that a value which must be unique is already taken.
func UniquenessViolation(resource, field string) *AppError {
	return &AppError{
		Err:     ErrUniqueness,
		Message: fmt.Sprintf("%s with this %s already exists", resource, field),
		Field:   field,
	}
}

// ReferentialIntegrityViolation reports a reference to a row that does not
// exist, or a delete that would orphan dependants.
func ReferentialIntegrityViolation(resource, field, message string) *AppError {
	if message == "" {
		message = fmt.Sprintf("%s references an unknown %s", resource, field)
	}
	return &AppError{
		Err:     ErrReferentialIntegrity,
		Message: message,
		Field:   field,
	}
}

// ConstraintViolation reports a value outside its allowed domain, e.g. a
// rating outside 1..5.
func ConstraintViolation(field, message string) *AppError {
	return &AppError{
		Err:     ErrConstraint,
		Message: message,
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned for failed logins. The message never says which
// of email or password was wrong.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
