// ABOUTME: API key persistence methods for SQLiteStore
// ABOUTME: Keys are stored as raw strings with a unique index for exact-match lookup

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Ensure SQLiteStore implements APIKeyStore.
var _ APIKeyStore = (*SQLiteStore)(nil)

// CreateAPIKey persists a new API key.
// Returns ErrDuplicateKey if the key string already exists.
// On success the key's ID and created_at are filled in.
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, key *APIKey) error {
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO api_keys (name, key, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		key.Name,
		key.Key,
		key.UserID,
		formatTime(key.CreatedAt),
		formatTime(key.ExpiresAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("inserting api key: %w", err)
	}

	key.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting api key id: %w", err)
	}

	// Key string deliberately not logged.
	s.logger.Info("created api key", "id", key.ID, "name", key.Name, "user_id", key.UserID, "expires_at", key.ExpiresAt)
	return nil
}

// GetAPIKey retrieves an API key by ID.
// Returns ErrNotFound if no key exists with that ID.
func (s *SQLiteStore) GetAPIKey(ctx context.Context, id int64) (*APIKey, error) {
	query := `
		SELECT id, name, key, user_id, created_at, expires_at, last_used
		FROM api_keys
		WHERE id = ?
	`
	return s.scanAPIKey(s.db.QueryRowContext(ctx, query, id))
}

// GetAPIKeyByKey retrieves an API key by exact key string match.
// Returns ErrNotFound if no record matches.
func (s *SQLiteStore) GetAPIKeyByKey(ctx context.Context, key string) (*APIKey, error) {
	query := `
		SELECT id, name, key, user_id, created_at, expires_at, last_used
		FROM api_keys
		WHERE key = ?
	`
	return s.scanAPIKey(s.db.QueryRowContext(ctx, query, key))
}

func (s *SQLiteStore) scanAPIKey(row *sql.Row) (*APIKey, error) {
	var k APIKey
	var createdAtStr, expiresAtStr string
	var lastUsedStr sql.NullString

	err := row.Scan(
		&k.ID,
		&k.Name,
		&k.Key,
		&k.UserID,
		&createdAtStr,
		&expiresAtStr,
		&lastUsedStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning api key: %w", err)
	}

	k.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	k.ExpiresAt, err = parseTime(expiresAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	if lastUsedStr.Valid {
		lastUsed, err := parseTime(lastUsedStr.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_used: %w", err)
		}
		k.LastUsed = &lastUsed
	}

	return &k, nil
}

// UpdateAPIKeyLastUsed records the time of a successful authentication.
// Last-writer-wins across concurrent requests; the field is diagnostic.
// Returns ErrNotFound if the key doesn't exist.
func (s *SQLiteStore) UpdateAPIKeyLastUsed(ctx context.Context, id int64, usedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE id = ?`, formatTime(usedAt), id)
	if err != nil {
		return fmt.Errorf("updating api key last_used: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAPIKey removes an API key.
// Returns ErrNotFound if the key doesn't exist.
func (s *SQLiteStore) DeleteAPIKey(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting api key: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted api key", "id", id)
	return nil
}

// ListAPIKeysByOwner returns all API keys owned by the given user,
// newest first. Expired keys are included.
func (s *SQLiteStore) ListAPIKeysByOwner(ctx context.Context, ownerID int64) ([]*APIKey, error) {
	query := `
		SELECT id, name, key, user_id, created_at, expires_at, last_used
		FROM api_keys
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying api keys: %w", err)
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		var k APIKey
		var createdAtStr, expiresAtStr string
		var lastUsedStr sql.NullString

		if err := rows.Scan(&k.ID, &k.Name, &k.Key, &k.UserID, &createdAtStr, &expiresAtStr, &lastUsedStr); err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}

		k.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		k.ExpiresAt, err = parseTime(expiresAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing expires_at: %w", err)
		}
		if lastUsedStr.Valid {
			lastUsed, err := parseTime(lastUsedStr.String)
			if err != nil {
				return nil, fmt.Errorf("parsing last_used: %w", err)
			}
			k.LastUsed = &lastUsed
		}
		keys = append(keys, &k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api key rows: %w", err)
	}

	return keys, nil
}
