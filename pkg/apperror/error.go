// Package apperror is the error taxonomy the HTTP layer speaks. Services
// return these; the echo error handler renders them as the JSON envelope.
package apperror

import (
	"fmt"
	"net/http"
)

// Error couples an HTTP status with a stable machine-readable code. The
// code is the contract: clients branch on it, and errors.Is matches on it.
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the internal cause to errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Internal
}

// Is matches by code, so copies customized via WithMessage or
// WithInternal still compare equal to their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) clone() *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   e.Internal,
		Details:    e.Details,
	}
}

// WithInternal copies the error and attaches a cause. The cause is for
// logs only; it never reaches the response body.
func (e *Error) WithInternal(err error) *Error {
	c := e.clone()
	c.Internal = err
	c.Details = nil
	return c
}

// WithMessage copies the error with a different client-facing message.
func (e *Error) WithMessage(message string) *Error {
	c := e.clone()
	c.Message = message
	return c
}

// WithDetails copies the error with structured detail fields.
func (e *Error) WithDetails(details map[string]any) *Error {
	c := e.clone()
	c.Details = details
	return c
}

// New creates an error with the given status, code, and message.
func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

// Sentinels for every failure the API distinguishes.
//
// The two *Unavailable codes are deliberately distinct: a caller must be
// able to tell "the document store is down" apart from "the graph store is
// down", because bundle writes survive the latter.
var (
	// Resource errors
	ErrNotFound         = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrVersionNotFound  = New(http.StatusNotFound, "version_not_found", "Bundle version not found")
	ErrDuplicateVersion = New(http.StatusConflict, "duplicate_version", "Bundle version already exists")

	// Validation errors
	ErrBadRequest = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrValidation = New(http.StatusUnprocessableEntity, "validation_error", "Validation failed")

	// Dependency errors
	ErrStoreUnavailable = New(http.StatusServiceUnavailable, "store_unavailable", "Document store unavailable")
	ErrGraphUnavailable = New(http.StatusServiceUnavailable, "graph_unavailable", "Graph store unavailable")
	ErrLLMUnavailable   = New(http.StatusServiceUnavailable, "llm_unavailable", "Language model not configured")

	// Server errors
	ErrInternal = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")
	ErrDatabase = New(http.StatusInternalServerError, "database_error", "Database operation failed")
)

// NewBadRequest is ErrBadRequest with a specific message.
func NewBadRequest(message string) *Error {
	return ErrBadRequest.WithMessage(message)
}

// NewNotFound names the missing resource in the message.
func NewNotFound(resourceType, id string) *Error {
	return ErrNotFound.WithMessage(fmt.Sprintf("%s '%s' not found", resourceType, id))
}

// NewInternal is ErrInternal with a specific message and cause.
func NewInternal(message string, err error) *Error {
	return ErrInternal.WithMessage(message).WithInternal(err)
}
