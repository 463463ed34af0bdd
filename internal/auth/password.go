// ABOUTME: Password-based authentication: registration, login, password change
// ABOUTME: bcrypt hashing with constant-work comparison for unknown accounts

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/intellivuln/vulnscan/internal/store"
)

// dummyHash is a valid bcrypt hash compared against when the account does not
// exist, so login latency does not reveal whether an email is registered.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// PasswordAuthenticator handles account registration and password login.
type PasswordAuthenticator struct {
	users    store.UserStore
	settings store.SettingsStore
	logger   *slog.Logger
}

// NewPasswordAuthenticator creates a password authenticator backed by the
// given stores.
func NewPasswordAuthenticator(users store.UserStore, settings store.SettingsStore) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		users:    users,
		settings: settings,
		logger:   slog.Default().With("component", "auth"),
	}
}

// Register creates a new account with the given email, name, and password.
// The first stored form of the password is its bcrypt hash; the plaintext is
// never persisted. A default settings record is provisioned for the new
// account; provisioning failure does not fail registration.
func (a *PasswordAuthenticator) Register(ctx context.Context, email, name, password string) (*store.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &store.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         store.RoleUser,
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAccount, email)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	if err := a.settings.CreateSettings(ctx, store.DefaultSettings(user.ID)); err != nil {
		a.logger.Warn("failed to provision default settings", "user_id", user.ID, "error", err)
	}

	a.logger.Info("account registered", "user_id", user.ID, "email", email)
	return user, nil
}

// Login verifies the email and password pair and returns the matching user.
// Email matching is exact and case-sensitive. Unknown accounts and wrong
// passwords both return ErrInvalidCredentials.
func (a *PasswordAuthenticator) Login(ctx context.Context, email, password string) (*store.User, error) {
	email = strings.TrimSpace(email)

	user, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same bcrypt work as a real comparison.
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		a.logger.Info("login rejected", "email", email)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// ChangePassword verifies the current password and replaces it with a new one.
func (a *PasswordAuthenticator) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := a.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}

	if len(next) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := a.users.UpdateUserPassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	a.logger.Info("password changed", "user_id", userID)
	return nil
}
