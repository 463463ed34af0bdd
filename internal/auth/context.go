// ABOUTME: Request-scoped identity for tracking the authenticated caller
// ABOUTME: Provides WithIdentity/FromContext for propagating identity via context

package auth

import (
	"context"

	"github.com/intellivuln/vulnscan/internal/store"
)

// Identity holds the authenticated caller information extracted from a request.
// It is populated by the Gate and can be retrieved from context in handlers.
type Identity struct {
	UserID int64
	Email  string
	Role   store.Role

	// APIKey identifies the key used to authenticate, for auditing and
	// rate limiting. Nil when the caller presented a bearer token.
	APIKey *APIKeyRef
}

// APIKeyRef records which API key authenticated a request.
type APIKeyRef struct {
	ID      int64
	OwnerID int64
	Name    string
}

// IsAdmin returns true if the caller has the ADMIN role.
func (id *Identity) IsAdmin() bool {
	return id.Role == store.RoleAdmin
}

// HasRole returns true if the caller's role is in the allowed set.
func (id *Identity) HasRole(roles ...store.Role) bool {
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// identityKey is the key type for storing Identity in context.Context.
type identityKey struct{}

// WithIdentity returns a new context with the Identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext retrieves the Identity from the context, returning nil if not present.
func FromContext(ctx context.Context) *Identity {
	val := ctx.Value(identityKey{})
	if val == nil {
		return nil
	}
	id, ok := val.(*Identity)
	if !ok {
		return nil
	}
	return id
}

// MustFromContext retrieves the Identity from the context, panicking if not present.
func MustFromContext(ctx context.Context) *Identity {
	id := FromContext(ctx)
	if id == nil {
		panic("auth: Identity not found in context")
	}
	return id
}
