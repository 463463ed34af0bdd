// ABOUTME: Tests for user persistence
// ABOUTME: Covers create/get, duplicate emails, password and role updates, listing

package store

import (
	"context"
	"errors"
	"testing"
)

func createTestUser(t *testing.T, store *SQLiteStore, email string) *User {
	t.Helper()

	user := &User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: "$2a$10$fakehashfortestingonlyfakehashfortesting",
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func TestCreateAndGetUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &User{
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: "hash-1",
		Role:         RoleAdmin,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID == 0 {
		t.Error("CreateUser did not assign an ID")
	}

	got, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}

	if got.Email != user.Email {
		t.Errorf("Email mismatch: got %q, want %q", got.Email, user.Email)
	}
	if got.Name != user.Name {
		t.Errorf("Name mismatch: got %q, want %q", got.Name, user.Name)
	}
	if got.PasswordHash != user.PasswordHash {
		t.Errorf("PasswordHash mismatch: got %q, want %q", got.PasswordHash, user.PasswordHash)
	}
	if got.Role != RoleAdmin {
		t.Errorf("Role mismatch: got %q, want %q", got.Role, RoleAdmin)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps were not set")
	}
}

func TestCreateUser_DefaultsRole(t *testing.T) {
	store := newTestStore(t)

	user := createTestUser(t, store, "bob@example.com")
	if user.Role != RoleUser {
		t.Errorf("Role = %q, want %q", user.Role, RoleUser)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store := newTestStore(t)

	createTestUser(t, store, "dup@example.com")

	dup := &User{
		Email:        "dup@example.com",
		Name:         "Other",
		PasswordHash: "hash-2",
	}
	err := store.CreateUser(context.Background(), dup)
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("CreateUser error = %v, want ErrDuplicateEmail", err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetUser(context.Background(), 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "carol@example.com")

	got, err := store.GetUserByEmail(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("ID mismatch: got %d, want %d", got.ID, user.ID)
	}

	_, err = store.GetUserByEmail(ctx, "nobody@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByEmail error = %v, want ErrNotFound", err)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "dave@example.com")

	if err := store.UpdateUserPassword(ctx, user.ID, "new-hash"); err != nil {
		t.Fatalf("UpdateUserPassword failed: %v", err)
	}

	got, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.PasswordHash != "new-hash" {
		t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, "new-hash")
	}
}

func TestUpdateUserPassword_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateUserPassword(context.Background(), 9999, "hash")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateUserPassword error = %v, want ErrNotFound", err)
	}
}

func TestUpdateUserRole(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "eve@example.com")

	if err := store.UpdateUserRole(ctx, user.ID, RoleAdmin); err != nil {
		t.Fatalf("UpdateUserRole failed: %v", err)
	}

	got, err := store.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", got.Role, RoleAdmin)
	}
}

func TestUpdateUserRole_Invalid(t *testing.T) {
	store := newTestStore(t)

	user := createTestUser(t, store, "frank@example.com")

	if err := store.UpdateUserRole(context.Background(), user.ID, Role("SUPERUSER")); err == nil {
		t.Error("UpdateUserRole should reject unknown roles")
	}
}

func TestListUsersAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	emails := []string{"u1@example.com", "u2@example.com", "u3@example.com"}
	for _, email := range emails {
		createTestUser(t, store, email)
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != len(emails) {
		t.Fatalf("ListUsers returned %d users, want %d", len(users), len(emails))
	}
	for i, email := range emails {
		if users[i].Email != email {
			t.Errorf("users[%d].Email = %q, want %q", i, users[i].Email, email)
		}
	}

	count, err := store.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers failed: %v", err)
	}
	if count != len(emails) {
		t.Errorf("CountUsers = %d, want %d", count, len(emails))
	}
}
