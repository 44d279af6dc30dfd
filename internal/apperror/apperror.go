// Package apperror defines the error kinds shared by every layer of the service.
//
// Each AppError wraps one sentinel (ErrNotFound, ErrValidation, ...) so callers
// can classify with errors.Is while still carrying a human-readable message.
// The HTTP layer maps the sentinel to a status code; services and repositories
// never mention HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage error")
)

// itemNotFoundMessage is the only message a retrieval failure ever carries.
// Absent, expired and wrong-password lookups must be indistinguishable.
const itemNotFoundMessage = "item not found"

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	cause   error  // underlying error, never shown to clients
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the sentinel kind and the underlying cause, so
// errors.Is works for ErrStorage as well as for e.g. sql.ErrConnDone.
func (e *AppError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ItemNotFound is returned for every failed retrieval. It deliberately
// names no id and no reason.
func ItemNotFound() *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: itemNotFoundMessage,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
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

// Unauthorized marks a request that carries no usable identity.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Storage wraps a persistence failure. op names the operation that failed
// ("inserting item", "recording visit"); err is kept for logs and errors.Is.
func Storage(op string, err error) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: op + " failed",
		cause:   err,
	}
}

// Cause returns the underlying error of a Storage error, or nil.
func (e *AppError) Cause() error {
	return e.cause
}
