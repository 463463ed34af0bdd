// ABOUTME: API key issuance, authentication, listing, and revocation
// ABOUTME: Keys are random hex with an ivs_ prefix and a hard expiry

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/intellivuln/vulnscan/internal/store"
)

// KeyPrefix marks issued API keys so they are recognizable in logs and
// support tickets without revealing the secret part.
const KeyPrefix = "ivs_"

// APIKeyAuthenticator issues and verifies API keys.
type APIKeyAuthenticator struct {
	keys   store.APIKeyStore
	users  store.UserStore
	logger *slog.Logger

	// defaultLifetime is applied when Issue is called without an expiry.
	defaultLifetime time.Duration
}

// NewAPIKeyAuthenticator creates an API key authenticator. defaultDays is the
// key lifetime applied when the caller does not pick an expiry.
func NewAPIKeyAuthenticator(keys store.APIKeyStore, users store.UserStore, defaultDays int) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{
		keys:            keys,
		users:           users,
		logger:          slog.Default().With("component", "apikeys"),
		defaultLifetime: time.Duration(defaultDays) * 24 * time.Hour,
	}
}

// Authenticate looks up the presented key and returns the owner's identity.
// Unknown keys return ErrInvalidAPIKey; known-but-expired keys return
// ErrExpiredAPIKey. On success the key's last_used timestamp is updated
// best-effort: a failed update is logged and never fails the request.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, key string) (*Identity, error) {
	apiKey, err := a.keys.GetAPIKeyByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("looking up api key: %w", err)
	}

	if apiKey.Expired(time.Now()) {
		return nil, ErrExpiredAPIKey
	}

	owner, err := a.users.GetUser(ctx, apiKey.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Orphaned key; treat as invalid rather than leaking store state.
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("looking up key owner: %w", err)
	}

	if err := a.keys.UpdateAPIKeyLastUsed(ctx, apiKey.ID, time.Now()); err != nil {
		a.logger.Warn("failed to update key last_used", "key_id", apiKey.ID, "error", err)
	}

	return &Identity{
		UserID: owner.ID,
		Email:  owner.Email,
		Role:   owner.Role,
		APIKey: &APIKeyRef{
			ID:      apiKey.ID,
			OwnerID: apiKey.UserID,
			Name:    apiKey.Name,
		},
	}, nil
}

// Issue mints a new API key for the given owner. If expiresAt is the zero
// time the default lifetime applies; otherwise it must be in the future.
// The plaintext key is returned exactly once, in the created record.
func (a *APIKeyAuthenticator) Issue(ctx context.Context, ownerID int64, name string, expiresAt time.Time) (*store.APIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: key name is required", ErrInvalidInput)
	}

	now := time.Now()
	if expiresAt.IsZero() {
		expiresAt = now.Add(a.defaultLifetime)
	}
	if !expiresAt.After(now) {
		return nil, fmt.Errorf("%w: expiry must be in the future", ErrInvalidInput)
	}

	key, err := generateKey()
	if err != nil {
		return nil, fmt.Errorf("generating key material: %w", err)
	}

	apiKey := &store.APIKey{
		Name:      name,
		Key:       key,
		UserID:    ownerID,
		ExpiresAt: expiresAt.UTC(),
	}
	if err := a.keys.CreateAPIKey(ctx, apiKey); err != nil {
		return nil, fmt.Errorf("storing api key: %w", err)
	}

	a.logger.Info("api key issued", "key_id", apiKey.ID, "user_id", ownerID, "name", name)
	return apiKey, nil
}

// Revoke deletes a key after confirming it belongs to the caller. A key that
// does not exist or belongs to someone else returns store.ErrNotFound; the
// two cases are indistinguishable to the caller.
func (a *APIKeyAuthenticator) Revoke(ctx context.Context, ownerID, keyID int64) error {
	apiKey, err := a.keys.GetAPIKey(ctx, keyID)
	if err != nil {
		return err
	}
	if apiKey.UserID != ownerID {
		return store.ErrNotFound
	}

	if err := a.keys.DeleteAPIKey(ctx, keyID); err != nil {
		return err
	}

	a.logger.Info("api key revoked", "key_id", keyID, "user_id", ownerID)
	return nil
}

// List returns the caller's keys, newest first.
func (a *APIKeyAuthenticator) List(ctx context.Context, ownerID int64) ([]*store.APIKey, error) {
	return a.keys.ListAPIKeysByOwner(ctx, ownerID)
}

// generateKey returns a new random key string: the ivs_ prefix followed by
// 64 hex characters (32 bytes of entropy).
func generateKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return KeyPrefix + hex.EncodeToString(bytes), nil
}
