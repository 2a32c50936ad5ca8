package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
	"github.com/bcnelson/ioc-dashboard/internal/validation"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondStandardError writes a standardized JSON error response.
func respondStandardError(w http.ResponseWriter, status int, code, message, field string, details map[string]any) {
	respondJSON(w, status, &domain.StandardErrorResponse{
		Error: domain.StandardError{
			Code:    code,
			Message: message,
			Field:   field,
			Details: details,
		},
	})
}

// respondError writes a JSON error response with a code derived from status.
func respondError(w http.ResponseWriter, status int, message string) {
	code := domain.ErrCodeInternalError
	switch status {
	case http.StatusBadRequest:
		code = domain.ErrCodeInvalidInput
	case http.StatusNotFound:
		code = domain.ErrCodeResourceNotFound
	case http.StatusConflict:
		code = domain.ErrCodeResourceExists
	case http.StatusBadGateway:
		code = domain.ErrCodeFetchFailed
	}
	respondStandardError(w, status, code, message, "", nil)
}

// handleError converts domain errors to HTTP errors.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, domain.ErrStaleRefresh):
		respondStandardError(w, http.StatusConflict, domain.ErrCodeStaleRefresh, "superseded by a newer refresh", "", nil)
	case errors.Is(err, domain.ErrFetchFailed):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		slog.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

// respondValidationErrors writes a JSON response for multiple validation errors.
func respondValidationErrors(w http.ResponseWriter, errs validation.ValidationErrors) {
	respondStandardError(w, http.StatusBadRequest, domain.ErrCodeValidationError,
		errs.Error(), errs[0].Field, map[string]any{
			"errors": errs,
		})
}
