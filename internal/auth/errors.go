// ABOUTME: Sentinel errors for every authentication failure cause
// ABOUTME: Causes stay distinguishable internally; the HTTP boundary conflates some deliberately

package auth

import "errors"

// Authentication errors. ErrInvalidCredentials covers both "no such user" and
// "wrong password" so responses cannot be used to enumerate accounts; the same
// applies to ErrInvalidToken vs ErrExpiredToken at the HTTP boundary, where
// both map to a single 401 message. The distinct values exist for logging.
var (
	ErrMissingCredential  = errors.New("missing credential")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrMissingClaim       = errors.New("missing required claim")
	ErrInvalidAPIKey      = errors.New("invalid api key")
	ErrExpiredAPIKey      = errors.New("api key expired")
	ErrInsufficientRole   = errors.New("insufficient permissions")
)
