package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/dukerupert/hostcal/internal/apperr"
	"github.com/dukerupert/hostcal/internal/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserCreate(t *testing.T) {
	us := NewUserStore(openTestDB(t))

	u, err := us.Create("alice@example.com", "pw-hash", "answer-hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "alice@example.com")
	}
	if u.PasswordHash != "pw-hash" || u.SecurityHash != "answer-hash" {
		t.Errorf("hashes = %q/%q", u.PasswordHash, u.SecurityHash)
	}
	if !u.IsActive {
		t.Error("expected new user to be active")
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := NewUserStore(openTestDB(t))

	if _, err := us.Create("alice@example.com", "a", "b"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := us.Create("alice@example.com", "c", "d")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want CONFLICT", err)
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us := NewUserStore(openTestDB(t))

	u, err := us.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserGetByEmail(t *testing.T) {
	us := NewUserStore(openTestDB(t))

	created, _ := us.Create("alice@example.com", "a", "b")

	u, err := us.GetByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u == nil || u.ID != created.ID {
		t.Fatalf("got %+v, want id %d", u, created.ID)
	}

	missing, err := us.GetByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for nonexistent email")
	}
}

func TestUserListAndUpdatePassword(t *testing.T) {
	us := NewUserStore(openTestDB(t))

	a, _ := us.Create("a@example.com", "a", "x")
	us.Create("b@example.com", "b", "x")

	if err := us.UpdatePassword(a.ID, "new-hash"); err != nil {
		t.Fatalf("update password: %v", err)
	}

	users, err := us.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len = %d, want 2", len(users))
	}
	if users[0].PasswordHash != "new-hash" {
		t.Errorf("password hash = %q, want new-hash", users[0].PasswordHash)
	}
}
