// ABOUTME: Per-user settings persistence methods for SQLiteStore
// ABOUTME: Each user has at most one settings row, provisioned at registration

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Ensure SQLiteStore implements SettingsStore.
var _ SettingsStore = (*SQLiteStore)(nil)

// CreateSettings inserts a settings row for a user.
// The settings.user_id unique index guarantees one row per user.
func (s *SQLiteStore) CreateSettings(ctx context.Context, settings *Settings) error {
	settings.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO settings (user_id, email_notifications, severity_threshold, auto_scan_enabled, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		settings.UserID,
		boolToInt(settings.EmailNotifications),
		settings.SeverityThreshold,
		boolToInt(settings.AutoScanEnabled),
		formatTime(settings.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting settings: %w", err)
	}

	settings.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting settings id: %w", err)
	}

	s.logger.Debug("created settings", "id", settings.ID, "user_id", settings.UserID)
	return nil
}

// GetSettingsByUser retrieves the settings row for a user.
// Returns ErrNotFound if none exists.
func (s *SQLiteStore) GetSettingsByUser(ctx context.Context, userID int64) (*Settings, error) {
	query := `
		SELECT id, user_id, email_notifications, severity_threshold, auto_scan_enabled, updated_at
		FROM settings
		WHERE user_id = ?
	`

	var settings Settings
	var emailNotifications, autoScan int
	var updatedAtStr string

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&settings.ID,
		&settings.UserID,
		&emailNotifications,
		&settings.SeverityThreshold,
		&autoScan,
		&updatedAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying settings: %w", err)
	}

	settings.EmailNotifications = emailNotifications != 0
	settings.AutoScanEnabled = autoScan != 0
	settings.UpdatedAt, err = parseTime(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &settings, nil
}

// UpdateSettings replaces a user's settings values.
// Returns ErrNotFound if the user has no settings row.
func (s *SQLiteStore) UpdateSettings(ctx context.Context, settings *Settings) error {
	settings.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE settings
		SET email_notifications = ?, severity_threshold = ?, auto_scan_enabled = ?, updated_at = ?
		WHERE user_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		boolToInt(settings.EmailNotifications),
		settings.SeverityThreshold,
		boolToInt(settings.AutoScanEnabled),
		formatTime(settings.UpdatedAt),
		settings.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating settings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated settings", "user_id", settings.UserID)
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
