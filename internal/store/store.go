// ABOUTME: Store interfaces and data types for vulnscan persistence
// ABOUTME: Defines User, APIKey, Settings, Asset, Vulnerability and per-concern interfaces

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when creating a user with an email that already exists
var ErrDuplicateEmail = errors.New("email already exists")

// ErrDuplicateKey is returned when an API key string collides with an existing one
var ErrDuplicateKey = errors.New("api key already exists")

// Role is the access level assigned to a user.
type Role string

// Role constants. RoleUser is the default for new registrations.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an identity record. Email is unique and compared case-sensitively.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string // bcrypt hash, never exposed over the API
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// APIKey is a long-lived credential bound to exactly one user.
// The raw key string is stored and returned in listings; see DESIGN.md.
type APIKey struct {
	ID        int64
	Name      string
	Key       string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	LastUsed  *time.Time // nil until first successful authentication
}

// Expired reports whether the key's expiry has elapsed at the given instant.
func (k *APIKey) Expired(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}

// Settings holds per-user preferences, provisioned with defaults at registration.
type Settings struct {
	ID                 int64
	UserID             int64
	EmailNotifications bool
	SeverityThreshold  string
	AutoScanEnabled    bool
	UpdatedAt          time.Time
}

// DefaultSettings returns the settings provisioned for a new user.
func DefaultSettings(userID int64) *Settings {
	return &Settings{
		UserID:             userID,
		EmailNotifications: true,
		SeverityThreshold:  "medium",
		AutoScanEnabled:    false,
	}
}

// Asset represents a scannable asset in the inventory.
type Asset struct {
	ID              int64
	Name            string
	Description     string
	AssetType       string // server, container, application, etc.
	Hostname        string
	IPAddress       string
	OperatingSystem string
	Owner           string
	Environment     string // production, staging, development
	Criticality     string // critical, high, medium, low
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Vulnerability severity levels, highest first.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Vulnerability status values.
const (
	VulnStatusOpen         = "open"
	VulnStatusInProgress   = "in_progress"
	VulnStatusResolved     = "resolved"
	VulnStatusAcceptedRisk = "accepted_risk"
)

// Vulnerability is a finding recorded against an asset.
type Vulnerability struct {
	ID               int64
	AssetID          int64
	CVEID            string
	Title            string
	Description      string
	Severity         string
	CVSSScore        float64
	Status           string
	ExploitAvailable bool
	PatchAvailable   bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// VulnerabilityFilter narrows ListVulnerabilities results. Zero values mean
// "no constraint" for each field.
type VulnerabilityFilter struct {
	AssetID  int64
	Severity string
	Status   string
	CVEID    string
}

// UserStore defines user persistence operations.
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	UpdateUserRole(ctx context.Context, id int64, role Role) error
	ListUsers(ctx context.Context) ([]*User, error)
	CountUsers(ctx context.Context) (int, error)
}

// APIKeyStore defines API key persistence operations.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *APIKey) error
	GetAPIKey(ctx context.Context, id int64) (*APIKey, error)
	GetAPIKeyByKey(ctx context.Context, key string) (*APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id int64, usedAt time.Time) error
	DeleteAPIKey(ctx context.Context, id int64) error
	ListAPIKeysByOwner(ctx context.Context, ownerID int64) ([]*APIKey, error)
}

// SettingsStore defines settings persistence operations.
type SettingsStore interface {
	CreateSettings(ctx context.Context, settings *Settings) error
	GetSettingsByUser(ctx context.Context, userID int64) (*Settings, error)
	UpdateSettings(ctx context.Context, settings *Settings) error
}

// AssetStore defines asset persistence operations.
type AssetStore interface {
	CreateAsset(ctx context.Context, asset *Asset) error
	GetAsset(ctx context.Context, id int64) (*Asset, error)
	UpdateAsset(ctx context.Context, asset *Asset) error
	DeleteAsset(ctx context.Context, id int64) error
	ListAssets(ctx context.Context, limit int) ([]*Asset, error)
}

// VulnerabilityStore defines vulnerability persistence operations.
type VulnerabilityStore interface {
	CreateVulnerability(ctx context.Context, vuln *Vulnerability) error
	GetVulnerability(ctx context.Context, id int64) (*Vulnerability, error)
	UpdateVulnerability(ctx context.Context, vuln *Vulnerability) error
	UpdateVulnerabilityStatus(ctx context.Context, id int64, status string) error
	DeleteVulnerability(ctx context.Context, id int64) error
	ListVulnerabilities(ctx context.Context, filter VulnerabilityFilter, limit int) ([]*Vulnerability, error)
}

// Store combines every persistence concern plus resource cleanup.
type Store interface {
	UserStore
	APIKeyStore
	SettingsStore
	AssetStore
	VulnerabilityStore

	// Close releases any resources held by the store
	Close() error
}
