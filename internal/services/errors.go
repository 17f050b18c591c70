package services

import (
	"errors"
	"net/http"
)

// ErrorKind classifies a service error for the HTTP layer
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindConflict          ErrorKind = "conflict"
	KindNotFound          ErrorKind = "not_found"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindForbidden         ErrorKind = "forbidden"
	KindSystem            ErrorKind = "system"
)

// Error is the structured error returned by every service operation.
// Details carries field-level context safe to expose to callers.
type Error struct {
	Kind    ErrorKind         `json:"kind"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus maps the error kind to an HTTP status code
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidTransition:
		return http.StatusConflict
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError builds a validation error with optional field details
func NewValidationError(message string, details map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// NewInvalidTransitionError builds a lifecycle transition error
func NewInvalidTransitionError(message string, details map[string]string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: message, Details: details}
}

// NewConflictError builds a slot conflict or duplicate resource error
func NewConflictError(message string, details map[string]string) *Error {
	return &Error{Kind: KindConflict, Message: message, Details: details}
}

// NewNotFoundError builds a not-found error
func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// NewUnauthorizedError builds an authentication failure error
func NewUnauthorizedError(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// NewForbiddenError builds an authorization failure error
func NewForbiddenError(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NewSystemError wraps an infrastructure failure. The underlying cause is
// logged, not exposed.
func NewSystemError(message string) *Error {
	return &Error{Kind: KindSystem, Message: message}
}

// AsError unwraps err into a service Error if it is one
func AsError(err error) (*Error, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}
