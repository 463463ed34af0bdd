// ABOUTME: Asset inventory persistence methods for SQLiteStore
// ABOUTME: Assets own vulnerabilities; deleting an asset cascades to its findings

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Ensure SQLiteStore implements AssetStore.
var _ AssetStore = (*SQLiteStore)(nil)

// CreateAsset inserts a new asset and fills in its ID and timestamps.
func (s *SQLiteStore) CreateAsset(ctx context.Context, asset *Asset) error {
	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = now

	query := `
		INSERT INTO assets (name, description, asset_type, hostname, ip_address, operating_system, owner, environment, criticality, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		asset.Name,
		nullString(asset.Description),
		asset.AssetType,
		nullString(asset.Hostname),
		nullString(asset.IPAddress),
		nullString(asset.OperatingSystem),
		nullString(asset.Owner),
		nullString(asset.Environment),
		nullString(asset.Criticality),
		formatTime(asset.CreatedAt),
		formatTime(asset.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting asset: %w", err)
	}

	asset.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting asset id: %w", err)
	}

	s.logger.Debug("created asset", "id", asset.ID, "name", asset.Name, "type", asset.AssetType)
	return nil
}

// GetAsset retrieves an asset by ID.
// Returns ErrNotFound if the asset doesn't exist.
func (s *SQLiteStore) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	query := `
		SELECT id, name, description, asset_type, hostname, ip_address, operating_system, owner, environment, criticality, created_at, updated_at
		FROM assets
		WHERE id = ?
	`

	row := s.db.QueryRowContext(ctx, query, id)
	asset, err := scanAsset(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return asset, err
}

// scanAsset reads one asset row via the given scan function.
func scanAsset(scan func(dest ...any) error) (*Asset, error) {
	var asset Asset
	var description, hostname, ipAddress, operatingSystem, owner, environment, criticality sql.NullString
	var createdAtStr, updatedAtStr string

	err := scan(
		&asset.ID,
		&asset.Name,
		&description,
		&asset.AssetType,
		&hostname,
		&ipAddress,
		&operatingSystem,
		&owner,
		&environment,
		&criticality,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	asset.Description = description.String
	asset.Hostname = hostname.String
	asset.IPAddress = ipAddress.String
	asset.OperatingSystem = operatingSystem.String
	asset.Owner = owner.String
	asset.Environment = environment.String
	asset.Criticality = criticality.String

	asset.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	asset.UpdatedAt, err = parseTime(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &asset, nil
}

// UpdateAsset replaces an asset's mutable fields.
// Returns ErrNotFound if the asset doesn't exist.
func (s *SQLiteStore) UpdateAsset(ctx context.Context, asset *Asset) error {
	asset.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE assets
		SET name = ?, description = ?, asset_type = ?, hostname = ?, ip_address = ?, operating_system = ?, owner = ?, environment = ?, criticality = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		asset.Name,
		nullString(asset.Description),
		asset.AssetType,
		nullString(asset.Hostname),
		nullString(asset.IPAddress),
		nullString(asset.OperatingSystem),
		nullString(asset.Owner),
		nullString(asset.Environment),
		nullString(asset.Criticality),
		formatTime(asset.UpdatedAt),
		asset.ID,
	)
	if err != nil {
		return fmt.Errorf("updating asset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated asset", "id", asset.ID)
	return nil
}

// DeleteAsset removes an asset and, via foreign key cascade, its vulnerabilities.
// Returns ErrNotFound if the asset doesn't exist.
func (s *SQLiteStore) DeleteAsset(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted asset", "id", id)
	return nil
}

// ListAssets retrieves assets ordered by most recent update.
// If limit is 0 or negative, a default limit of 100 is used.
func (s *SQLiteStore) ListAssets(ctx context.Context, limit int) ([]*Asset, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `
		SELECT id, name, description, asset_type, hostname, ip_address, operating_system, owner, environment, criticality, created_at, updated_at
		FROM assets
		ORDER BY updated_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying assets: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning asset row: %w", err)
		}
		assets = append(assets, asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating asset rows: %w", err)
	}

	return assets, nil
}
