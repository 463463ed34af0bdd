// ABOUTME: JSON response helpers and the error-to-status mapping
// ABOUTME: All errors share one envelope: {"error":{"code","message"}}

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/intellivuln/vulnscan/internal/auth"
	"github.com/intellivuln/vulnscan/internal/store"
)

// errorBody is the JSON envelope for all error responses.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Default().Error("encoding response", "error", err)
		}
	}
}

// writeError emits the standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// respondError maps internal errors to HTTP responses. Authentication causes
// are deliberately conflated: wrong-password and unknown-email both read
// "invalid credentials", and revoking someone else's key reads the same as
// revoking a key that never existed.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		writeError(w, http.StatusUnauthorized, "missing_credential", "authentication required")
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, auth.ErrDuplicateAccount):
		writeError(w, http.StatusBadRequest, "duplicate_account", "an account with this email already exists")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		writeError(w, http.StatusUnauthorized, "invalid_or_expired_token", "invalid or expired token")
	case errors.Is(err, auth.ErrInvalidAPIKey):
		writeError(w, http.StatusUnauthorized, "invalid_api_key", "invalid api key")
	case errors.Is(err, auth.ErrExpiredAPIKey):
		writeError(w, http.StatusUnauthorized, "expired_api_key", "api key expired")
	case errors.Is(err, auth.ErrInsufficientRole):
		writeError(w, http.StatusForbidden, "insufficient_permissions", "insufficient permissions")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, "duplicate_account", "an account with this email already exists")
	default:
		slog.Default().Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// badRequest reports a malformed or invalid request body.
func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "invalid_request", message)
}
