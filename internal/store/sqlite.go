// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides schema creation and shared scan helpers

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'USER',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,

			CHECK (role IN ('USER', 'ADMIN'))
		);

		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS api_keys (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			key TEXT UNIQUE NOT NULL,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			last_used TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_api_keys_key ON api_keys(key);
		CREATE INDEX IF NOT EXISTS idx_api_keys_user ON api_keys(user_id);

		CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			email_notifications INTEGER NOT NULL DEFAULT 1,
			severity_threshold TEXT NOT NULL DEFAULT 'medium',
			auto_scan_enabled INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS assets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT,
			asset_type TEXT NOT NULL,
			hostname TEXT,
			ip_address TEXT,
			operating_system TEXT,
			owner TEXT,
			environment TEXT,
			criticality TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_assets_type ON assets(asset_type);
		CREATE INDEX IF NOT EXISTS idx_assets_environment ON assets(environment);

		CREATE TABLE IF NOT EXISTS vulnerabilities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			asset_id INTEGER NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
			cve_id TEXT,
			title TEXT NOT NULL,
			description TEXT,
			severity TEXT NOT NULL,
			cvss_score REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'open',
			exploit_available INTEGER NOT NULL DEFAULT 0,
			patch_available INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,

			CHECK (severity IN ('critical', 'high', 'medium', 'low')),
			CHECK (status IN ('open', 'in_progress', 'resolved', 'accepted_risk'))
		);

		CREATE INDEX IF NOT EXISTS idx_vulns_asset ON vulnerabilities(asset_id);
		CREATE INDEX IF NOT EXISTS idx_vulns_severity ON vulnerabilities(severity);
		CREATE INDEX IF NOT EXISTS idx_vulns_status ON vulnerabilities(status);
		CREATE INDEX IF NOT EXISTS idx_vulns_cve ON vulnerabilities(cve_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)

// isUniqueConstraintError checks if an error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	// SQLite returns "UNIQUE constraint failed" in the error message
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "unique constraint"))
}

// formatTime renders a timestamp the way every table stores it.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime is the inverse of formatTime.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// nullString returns nil for empty strings, otherwise the string itself
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
