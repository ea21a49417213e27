// Package simtrack provides the HTTP plumbing for the Sims Challenge Tracker
// backend: context-based response handling, structured API errors, request
// binding, and the middleware that writes exactly one response per request.
//
// This file contains the core error types used throughout the application for
// structured API error responses. The wire shape is intentionally small:
// `{"error": "..."}` for general failures and `{"field": "...", "error": "..."}`
// for validation failures tied to a single input field.
package simtrack

import (
	"net/http"
)

// APIError represents a structured API error response.
type APIError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"error"`
	Status  int    `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Is implements errors.Is for comparing errors by status and field.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Status == t.Status && e.Field == t.Field
}

// With returns a copy of the error with a custom message.
func (e *APIError) With(message string) *APIError {
	if e == nil {
		return nil
	}
	dup := *e
	dup.Message = message
	return &dup
}

// WithField returns a copy of the error with a custom message tied to an
// input field.
func (e *APIError) WithField(field, message string) *APIError {
	if e == nil {
		return nil
	}
	dup := *e
	dup.Field = field
	dup.Message = message
	return &dup
}

// Predefined sentinel errors
var (
	ErrBadRequest         = &APIError{Message: "Bad request", Status: http.StatusBadRequest}
	ErrInvalidCredentials = &APIError{Message: "Invalid credentials", Status: http.StatusUnauthorized}
	ErrUnauthorized       = &APIError{Message: "Authentication required", Status: http.StatusUnauthorized}
	ErrForbidden          = &APIError{Message: "Forbidden", Status: http.StatusForbidden}
	ErrCSRF               = &APIError{Message: "Invalid CSRF token", Status: http.StatusForbidden}
	ErrNotFound           = &APIError{Message: "Not found", Status: http.StatusNotFound}
	ErrPayloadTooLarge    = &APIError{Message: "Request body too large", Status: http.StatusRequestEntityTooLarge}
	ErrRateLimited        = &APIError{Message: "Too many requests", Status: http.StatusTooManyRequests}
	ErrInternal           = &APIError{Message: "Something went wrong", Status: http.StatusInternalServerError}
)

// NewFieldError creates a 400 validation error for a specific input field.
func NewFieldError(field, message string) *APIError {
	return &APIError{
		Field:   field,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}
