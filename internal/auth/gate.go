// ABOUTME: HTTP middleware gating requests on exactly one credential path
// ABOUTME: Bearer token or X-Api-Key header; role checks layer on top

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/intellivuln/vulnscan/internal/store"
)

// Header names recognized by the gate.
const (
	HeaderAuthorization = "Authorization"
	HeaderAPIKey        = "X-Api-Key"
	bearerPrefix        = "Bearer "
)

// Gate authenticates incoming requests. A request passes through exactly one
// credential path: an X-Api-Key header wins when present, otherwise a Bearer
// token is required. Handlers behind the gate can rely on MustFromContext.
type Gate struct {
	tokens *JWTVerifier
	keys   *APIKeyAuthenticator
	logger *slog.Logger
}

// NewGate creates the authentication gate.
func NewGate(tokens *JWTVerifier, keys *APIKeyAuthenticator) *Gate {
	return &Gate{
		tokens: tokens,
		keys:   keys,
		logger: slog.Default().With("component", "gate"),
	}
}

// Middleware returns the authentication middleware. Requests that already
// carry an identity in context (from an outer gate) pass through untouched.
func (g *Gate) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if FromContext(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := g.authenticate(r)
			if err != nil {
				g.reject(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// authenticate resolves the request's credential to an identity.
func (g *Gate) authenticate(r *http.Request) (*Identity, error) {
	if key := r.Header.Get(HeaderAPIKey); key != "" {
		return g.keys.Authenticate(r.Context(), key)
	}

	header := r.Header.Get(HeaderAuthorization)
	if header == "" {
		return nil, ErrMissingCredential
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, ErrInvalidToken
	}
	tokenString := strings.TrimPrefix(header, bearerPrefix)

	claims, err := g.tokens.Verify(tokenString)
	if err != nil {
		return nil, err
	}

	return &Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// reject writes the 401 response for an authentication failure. Token and
// credential failures share generic messages; only the error code separates
// missing, token, and key failures.
func (g *Gate) reject(w http.ResponseWriter, r *http.Request, err error) {
	code := "invalid_or_expired_token"
	message := "invalid or expired token"

	switch {
	case errors.Is(err, ErrMissingCredential):
		code = "missing_credential"
		message = "authentication required"
	case errors.Is(err, ErrInvalidAPIKey):
		code = "invalid_api_key"
		message = "invalid api key"
	case errors.Is(err, ErrExpiredAPIKey):
		code = "expired_api_key"
		message = "api key expired"
	}

	g.logger.Info("request rejected", "path", r.URL.Path, "code", code)
	writeAuthError(w, http.StatusUnauthorized, code, message)
}

// RequireRole returns middleware allowing only the given roles. It must run
// inside the gate; an absent identity is a wiring bug and panics.
func RequireRole(roles ...store.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := MustFromContext(r.Context())
			if !identity.HasRole(roles...) {
				writeAuthError(w, http.StatusForbidden, "insufficient_permissions", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeAuthError emits the standard JSON error envelope.
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
