package handler

// RESPONSE HELPERS:
// Every JSON endpoint answers through writeJSON / writeError so the body
// shape never drifts between handlers.
//
// ERROR FORMAT:
//   {"error": "not_found", "message": "sneaker not found with id abc123"}
//   {"error": "validation_error", "message": "validation failed", "fields": {"tag": "tag is required"}}
//
// The frontend can always read "error" for the kind and "message" for text
// it shows verbatim.

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sakif/sneaker-rotation/internal/apperror"
)

// ErrorResponse is the standard error body returned by all API endpoints.
type ErrorResponse struct {
	Error   string            `json:"error"`            // machine-readable kind, e.g. "not_found"
	Message string            `json:"message"`          // human-readable description
	Fields  map[string]string `json:"fields,omitempty"` // per-field validation messages
}

const internalErrorMessage = "An internal error occurred"

// writeJSON sends data as JSON with the given status. Headers go out before
// the body; once Encode starts writing, the status can no longer change.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; all we can do is log.
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}

// writeError maps err to a status and sends an ErrorResponse. Errors that
// are not an *apperror.AppError become a generic 500 and are logged, since
// their text may contain SQL or file paths.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, body)
}

// errorResponse is the status + body mapping shared by the JSON API and
// the HTML pages.
//
// ERROR MAPPING:
//
//	ErrValidation   → 400
//	ErrUnauthorized → 401
//	ErrForbidden    → 403
//	ErrNotFound     → 404
//	ErrConflict     → 409
//	ErrUpstream     → 502
//	anything else   → 500
func errorResponse(err error) (int, ErrorResponse) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: internalErrorMessage,
		}
	}

	status, kind := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, kind = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUpstream):
		status, kind = http.StatusBadGateway, "upstream_error"
	}

	body := ErrorResponse{Error: kind, Message: appErr.Message, Fields: appErr.Fields}
	if body.Fields == nil && appErr.Field != "" {
		body.Fields = map[string]string{appErr.Field: appErr.Message}
	}
	return status, body
}

// decodeJSON reads a JSON request body into dst. A malformed body is a
// validation error so the client gets 400, not 500.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("", "invalid JSON body: "+err.Error())
	}
	return nil
}
