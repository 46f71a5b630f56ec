package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//   {"status": 404, "message": "User not found"}
//
// The status field mirrors the HTTP status code in the body so clients
// that only look at the payload still see what happened. The frontend
// always knows what fields to expect, regardless of whether it's a
// 400, 404, 422, or 500.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/challenge-hub/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Status  int    `json:"status"`  // Mirrors the HTTP status code
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// Headers and status code must be set BEFORE writing the body — once
// Encode calls w.Write() internally the headers are sent, and any header
// changes after that are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent at this point — we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
// This is where domain errors (from the service layer) get translated to HTTP.
// The service layer returns apperror.ErrNotFound, apperror.ErrConflict, etc.
// This function maps those to 404, 400, etc. The service layer itself never
// knows about HTTP status codes.
//
// errors.Is() walks the entire error chain (via Unwrap()), so wrapped errors
// like fmt.Errorf("updating user: %w", apperror.NotFound("User")) still match.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError

	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusUnprocessableEntity // 422
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound // 404
		case errors.Is(err, apperror.ErrConflict):
			// Duplicates are reported as a plain bad request, not 409
			status = http.StatusBadRequest // 400
		}

		writeJSON(w, status, ErrorResponse{
			Status:  status,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error — return a generic 500.
	// NEVER expose internal error details to the client: the raw message
	// might contain SQL queries, file paths, or GitHub API responses.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Status:  http.StatusInternalServerError,
		Message: "Internal server error",
	})
}
