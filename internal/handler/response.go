package handler

// RESPONSE HELPERS:
// Every JSON response goes through writeJSON, every failure through writeError,
// so the wire shapes stay the same across handlers:
//
//	success: whatever the handler encodes ({"user": ...}, a todo, a list)
//	failure: {"error": "validation_error", "message": "Todo text is required"}
//
// Clients branch on the status code and show `message`; `error` is the
// machine-readable kind.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/todo-list/internal/apperror"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// msgServerError is the only thing a client learns about an unexpected failure.
const msgServerError = "Server error"

// ErrorResponse is the error body returned by every API endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable kind, e.g. "not_found"
	Message string `json:"message"` // human-readable, safe to display
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends data as JSON with the given status.
//
// Headers and status must be written before the body; once Encode starts
// writing, header changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeMessage sends a plain {"message": ...} body.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// writeError maps a domain error to an HTTP status and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation      → 400 validation_error
//	ErrConflict        → 400 conflict (a duplicate registration is a bad request)
//	ErrUnauthenticated → 401 unauthenticated
//	ErrForbidden       → 403 forbidden
//	ErrNotFound        → 404 not_found
//	anything else      → 500 internal_error, logged, fixed message
//
// errors.As finds the *AppError anywhere in the wrap chain, so services can
// add context with fmt.Errorf("...: %w", err) without changing the mapping.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, kind := http.StatusInternalServerError, "internal_error"
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status, kind = http.StatusBadRequest, "validation_error"
		case errors.Is(err, apperror.ErrConflict):
			status, kind = http.StatusBadRequest, "conflict"
		case errors.Is(err, apperror.ErrUnauthenticated):
			status, kind = http.StatusUnauthorized, "unauthenticated"
		case errors.Is(err, apperror.ErrForbidden):
			status, kind = http.StatusForbidden, "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status, kind = http.StatusNotFound, "not_found"
		}
		if status != http.StatusInternalServerError {
			writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message})
			return
		}
	}

	// Never echo the raw error: it may contain SQL or file paths.
	logger.Error("request failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: msgServerError,
	})
}

// decodeJSON reads a size-limited JSON body into dst. Any failure comes back
// as a validation error, ready for writeError.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperror.ValidationFailed("body", fmt.Sprintf("Request body must not exceed %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "Request body is required")
		default:
			return apperror.ValidationFailed("body", "Request body must be valid JSON")
		}
	}
	return nil
}
