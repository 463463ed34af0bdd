// ABOUTME: JWT session token generation and verification using HS256
// ABOUTME: Tokens carry subject, email, and role claims with a bounded lifetime

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/intellivuln/vulnscan/internal/config"
	"github.com/intellivuln/vulnscan/internal/store"
)

// Claims represents the identity carried by a session token.
type Claims struct {
	UserID int64
	Email  string
	Role   store.Role
}

// JWTVerifier generates and verifies HS256-signed session tokens.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier with the given signing secret.
// The secret must be at least config.MinSecretLength bytes; weak secrets
// are rejected here so a misconfigured server fails at startup, not at
// the first login.
func NewJWTVerifier(secret []byte) (*JWTVerifier, error) {
	if len(secret) < config.MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes, got %d", config.MinSecretLength, len(secret))
	}
	return &JWTVerifier{secret: secret}, nil
}

// Generate creates a signed token for the given claims, valid for ttl.
func (v *JWTVerifier) Generate(claims *Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.FormatInt(claims.UserID, 10),
		"email": claims.Email,
		"role":  string(claims.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	})

	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string, returning the embedded claims.
// Expired tokens return ErrExpiredToken; everything else wrong with the
// token (bad signature, wrong algorithm, malformed, missing claims)
// returns ErrInvalidToken.
func (v *JWTVerifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, ok := mapClaims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed sub %q", ErrInvalidToken, sub)
	}

	email, ok := mapClaims["email"].(string)
	if !ok || email == "" {
		return nil, fmt.Errorf("%w: email", ErrMissingClaim)
	}

	roleStr, ok := mapClaims["role"].(string)
	if !ok || roleStr == "" {
		return nil, fmt.Errorf("%w: role", ErrMissingClaim)
	}
	role := store.Role(roleStr)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, roleStr)
	}

	return &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
	}, nil
}
