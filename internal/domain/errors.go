package domain

import "errors"

// Common errors used throughout the application.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrFetchFailed       = errors.New("fetch failed")
	ErrStaleRefresh      = errors.New("refresh superseded by a newer one")
	ErrUnsupportedFormat = errors.New("unsupported feed format")
)

// Error codes for standardized API error responses.
const (
	ErrCodeResourceNotFound = "RESOURCE_NOT_FOUND"
	ErrCodeResourceExists   = "RESOURCE_EXISTS"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeValidationError  = "VALIDATION_ERROR"
	ErrCodeFetchFailed      = "FETCH_FAILED"
	ErrCodeStaleRefresh     = "STALE_REFRESH"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// StandardError represents a standardized error response from the API.
type StandardError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StandardErrorResponse wraps a StandardError for JSON responses.
type StandardErrorResponse struct {
	Error StandardError `json:"error"`
}
