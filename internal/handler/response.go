package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "not_found", "message": "briefing not found with id abc123"}
//
// A rejected form submission or signup adds the per-field messages:
//   {"error": "validation_error", "message": "...", "fields": {"email": "Invalid email"}}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/store"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string            `json:"error"`            // Machine-readable error type (e.g., "not_found")
	Message string            `json:"message"`          // Human-readable description
	Field   string            `json:"field,omitempty"`  // Field that failed save-time validation
	Fields  map[string]string `json:"fields,omitempty"` // Per-field messages
	Notice  *store.Notice     `json:"notice,omitempty"` // Toast to show, when the operation emitted one
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the body is written; once Encode
// starts writing, header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// If encoding fails, the headers are already sent, so we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// decodeJSON reads a JSON request body into v. A malformed body becomes a
// validation error so callers can hand it straight to writeError.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// statusOf maps a domain error to its HTTP status and machine-readable type.
//
// errors.Is() walks the whole chain, so a service error like
//
//	fmt.Errorf("store: resolving owner of %s: %w", id, apperror.NotFound(...))
//
// still maps to 404.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// The service layer should not know about HTTP status codes, so the
// translation happens here.
func writeError(w http.ResponseWriter, err error) {
	writeErrorNotice(w, err, store.Notice{})
}

// writeErrorNotice is writeError plus the notice the failed operation emitted.
func writeErrorNotice(w http.ResponseWriter, err error, notice store.Notice) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Unknown error: return a generic 500.
		// NEVER expose internal error details to the client: the raw message
		// might contain SQL or file paths.
		resp := ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		}
		if notice.Message != "" {
			resp.Notice = &notice
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	status, errorType := statusOf(err)
	resp := ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Field:   appErr.Field,
		Fields:  appErr.Fields,
	}
	if notice.Message != "" {
		resp.Notice = &notice
	}
	writeJSON(w, status, resp)
}
