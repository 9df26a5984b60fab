package sqlite

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/sakif/sneaker-rotation/internal/model"
)

// newTestDB returns a migrated in-memory database that is closed when the
// test ends. Each test gets its own database.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(context.Background(), ":memory:", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a password user and its profile.
func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	ctx := context.Background()
	u := &model.User{Email: username + "@example.com", Username: username, PasswordHash: "hash"}
	if err := db.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if err := db.CreateProfile(ctx, &model.Profile{ID: u.ID, Username: username}); err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}
	return u
}

func TestNew_PingAndClose(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestDSN(t *testing.T) {
	if got := dsn(":memory:", true); got != ":memory:?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)" {
		t.Errorf("dsn(memory) = %q", got)
	}
	if got := dsn("data/x.db", false); got != "data/x.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)" {
		t.Errorf("dsn(file) = %q", got)
	}
}
