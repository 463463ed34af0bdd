// ABOUTME: Vulnerability persistence methods for SQLiteStore
// ABOUTME: Findings are CRUD records against assets with filterable listing

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Ensure SQLiteStore implements VulnerabilityStore.
var _ VulnerabilityStore = (*SQLiteStore)(nil)

// CreateVulnerability inserts a new finding. Status defaults to open.
func (s *SQLiteStore) CreateVulnerability(ctx context.Context, vuln *Vulnerability) error {
	if vuln.Status == "" {
		vuln.Status = VulnStatusOpen
	}
	now := time.Now().UTC()
	if vuln.CreatedAt.IsZero() {
		vuln.CreatedAt = now
	}
	vuln.UpdatedAt = now

	query := `
		INSERT INTO vulnerabilities (asset_id, cve_id, title, description, severity, cvss_score, status, exploit_available, patch_available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		vuln.AssetID,
		nullString(vuln.CVEID),
		vuln.Title,
		nullString(vuln.Description),
		vuln.Severity,
		vuln.CVSSScore,
		vuln.Status,
		boolToInt(vuln.ExploitAvailable),
		boolToInt(vuln.PatchAvailable),
		formatTime(vuln.CreatedAt),
		formatTime(vuln.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting vulnerability: %w", err)
	}

	vuln.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting vulnerability id: %w", err)
	}

	s.logger.Debug("created vulnerability", "id", vuln.ID, "asset_id", vuln.AssetID, "severity", vuln.Severity)
	return nil
}

// GetVulnerability retrieves a finding by ID.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) GetVulnerability(ctx context.Context, id int64) (*Vulnerability, error) {
	query := `
		SELECT id, asset_id, cve_id, title, description, severity, cvss_score, status, exploit_available, patch_available, created_at, updated_at
		FROM vulnerabilities
		WHERE id = ?
	`

	row := s.db.QueryRowContext(ctx, query, id)
	vuln, err := scanVulnerability(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return vuln, err
}

func scanVulnerability(scan func(dest ...any) error) (*Vulnerability, error) {
	var vuln Vulnerability
	var cveID, description sql.NullString
	var exploitAvailable, patchAvailable int
	var createdAtStr, updatedAtStr string

	err := scan(
		&vuln.ID,
		&vuln.AssetID,
		&cveID,
		&vuln.Title,
		&description,
		&vuln.Severity,
		&vuln.CVSSScore,
		&vuln.Status,
		&exploitAvailable,
		&patchAvailable,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	vuln.CVEID = cveID.String
	vuln.Description = description.String
	vuln.ExploitAvailable = exploitAvailable != 0
	vuln.PatchAvailable = patchAvailable != 0

	vuln.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	vuln.UpdatedAt, err = parseTime(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &vuln, nil
}

// UpdateVulnerability replaces a finding's mutable fields.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) UpdateVulnerability(ctx context.Context, vuln *Vulnerability) error {
	vuln.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE vulnerabilities
		SET asset_id = ?, cve_id = ?, title = ?, description = ?, severity = ?, cvss_score = ?, status = ?, exploit_available = ?, patch_available = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		vuln.AssetID,
		nullString(vuln.CVEID),
		vuln.Title,
		nullString(vuln.Description),
		vuln.Severity,
		vuln.CVSSScore,
		vuln.Status,
		boolToInt(vuln.ExploitAvailable),
		boolToInt(vuln.PatchAvailable),
		formatTime(vuln.UpdatedAt),
		vuln.ID,
	)
	if err != nil {
		return fmt.Errorf("updating vulnerability: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated vulnerability", "id", vuln.ID)
	return nil
}

// UpdateVulnerabilityStatus transitions a finding's status only.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) UpdateVulnerabilityStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE vulnerabilities SET status = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, status, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating vulnerability status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated vulnerability status", "id", id, "status", status)
	return nil
}

// DeleteVulnerability removes a finding.
// Returns ErrNotFound if it doesn't exist.
func (s *SQLiteStore) DeleteVulnerability(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM vulnerabilities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting vulnerability: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("deleted vulnerability", "id", id)
	return nil
}

// ListVulnerabilities retrieves findings matching the filter, newest first.
// If limit is 0 or negative, a default limit of 100 is used.
func (s *SQLiteStore) ListVulnerabilities(ctx context.Context, filter VulnerabilityFilter, limit int) ([]*Vulnerability, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `
		SELECT id, asset_id, cve_id, title, description, severity, cvss_score, status, exploit_available, patch_available, created_at, updated_at
		FROM vulnerabilities
		WHERE 1=1
	`
	var args []any

	if filter.AssetID != 0 {
		query += " AND asset_id = ?"
		args = append(args, filter.AssetID)
	}
	if filter.Severity != "" {
		query += " AND severity = ?"
		args = append(args, filter.Severity)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.CVEID != "" {
		query += " AND cve_id = ?"
		args = append(args, filter.CVEID)
	}

	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vulnerabilities: %w", err)
	}
	defer rows.Close()

	var vulns []*Vulnerability
	for rows.Next() {
		vuln, err := scanVulnerability(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning vulnerability row: %w", err)
		}
		vulns = append(vulns, vuln)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vulnerability rows: %w", err)
	}

	return vulns, nil
}
