// ABOUTME: User persistence methods for SQLiteStore
// ABOUTME: Email uniqueness is enforced at write time via the users.email unique index

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Ensure SQLiteStore implements UserStore.
var _ UserStore = (*SQLiteStore)(nil)

// CreateUser creates a new user. Role defaults to RoleUser when unset.
// Returns ErrDuplicateEmail if the email is already registered.
// On success the user's ID and timestamps are filled in.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.Role == "" {
		user.Role = RoleUser
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	query := `
		INSERT INTO users (email, name, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		user.Email,
		user.Name,
		user.PasswordHash,
		string(user.Role),
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting user id: %w", err)
	}

	s.logger.Info("created user", "id", user.ID, "email", user.Email, "role", user.Role)
	return nil
}

// GetUser retrieves a user by ID.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, email, name, password_hash, role, created_at, updated_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by exact (case-sensitive) email match.
// Returns ErrNotFound if no user has that email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, name, password_hash, role, created_at, updated_at
		FROM users
		WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var user User
	var role string
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&role,
		&createdAtStr,
		&updatedAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	user.Role = Role(role)

	user.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	user.UpdatedAt, err = parseTime(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &user, nil
}

// UpdateUserPassword replaces a user's password hash.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, passwordHash, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("updated user password", "id", id)
	return nil
}

// UpdateUserRole changes a user's role.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) UpdateUserRole(ctx context.Context, id int64, role Role) error {
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}

	query := `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, string(role), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating user role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("updated user role", "id", id, "role", role)
	return nil
}

// ListUsers returns all users ordered by creation time.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	query := `
		SELECT id, email, name, password_hash, role, created_at, updated_at
		FROM users
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var user User
		var role string
		var createdAtStr, updatedAtStr string

		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &role, &createdAtStr, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}

		user.Role = Role(role)
		user.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		user.UpdatedAt, err = parseTime(updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user rows: %w", err)
	}

	return users, nil
}

// CountUsers returns the number of registered users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}
