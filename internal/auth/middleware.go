package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/challenge-hub/internal/repository"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create keys of this type, so no other package can
// read or shadow the values we stash in the request context.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth is a middleware that enforces authentication on protected
// routes. It runs BEFORE the validator in the middleware chain.
//
// The credential is read from the Authorization header:
//
//	Authorization: Bearer <jwt>
//
// The JWT is validated (signature, expiry, issuer), and its subject is
// resolved against the user store — a token for a deleted account is
// rejected even though its signature is still valid. On success the user
// ID is stored in the request context for handlers to read.
func RequireAuth(tokens *TokenService, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolveUser(r, tokens, users)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. Returns ("", false) if the request is anonymous.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// resolveUser extracts the bearer token, validates it, and confirms the
// subject still exists in the store.
func resolveUser(r *http.Request, tokens *TokenService, users repository.UserRepository) (string, error) {
	header := r.Header.Get("Authorization")
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenStr == "" {
		return "", errMissingCredential
	}

	userID, err := tokens.Validate(tokenStr)
	if err != nil {
		return "", err
	}

	if _, err := users.GetByID(r.Context(), userID); err != nil {
		return "", err
	}

	return userID, nil
}

var errMissingCredential = errors.New("auth: missing bearer credential")

// writeUnauthorized emits the standard {status, message} error body.
// This runs before the handler layer, so it writes its own response.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	}{http.StatusUnauthorized, "Authentication required"})
}
