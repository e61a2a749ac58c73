package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/moodquest/internal/apperror"
	"github.com/sakif/moodquest/internal/model"
)

// newTestDB returns a fresh in-memory database with migrations applied.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestSession(t *testing.T, db *DB, id, userID string, expiresAt time.Time) *model.Session {
	t.Helper()
	s := &model.Session{ID: id, UserID: userID, ExpiresAt: expiresAt}
	if err := db.Create(context.Background(), s); err != nil {
		t.Fatalf("failed to create test session: %v", err)
	}
	return s
}

// =========================================================================
// CREATE / GET
// =========================================================================

func TestSessionCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	expires := time.Date(2030, 1, 2, 3, 4, 5, 123456789, time.UTC)
	createTestSession(t, db, "tok-1", "rec_alice", expires)

	got, err := db.Get(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "rec_alice" {
		t.Errorf("UserID = %q, want %q", got.UserID, "rec_alice")
	}
	if !got.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v (nanosecond precision)", got.ExpiresAt, expires)
	}
}

func TestSessionCreate_DuplicateIDIsConflict(t *testing.T) {
	db := newTestDB(t)
	createTestSession(t, db, "dup", "rec_a", time.Now().Add(time.Hour))

	err := db.Create(context.Background(), &model.Session{
		ID: "dup", UserID: "rec_b", ExpiresAt: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() duplicate error = %v, want ErrConflict", err)
	}
}

func TestSessionGet_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Get(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DELETE
// =========================================================================

func TestSessionDelete_Idempotent(t *testing.T) {
	db := newTestDB(t)
	createTestSession(t, db, "tok", "rec_a", time.Now().Add(time.Hour))

	for i := 0; i < 2; i++ {
		if err := db.Delete(context.Background(), "tok"); err != nil {
			t.Fatalf("Delete() call %d error = %v", i+1, err)
		}
	}
	if err := db.Delete(context.Background(), "never-existed"); err != nil {
		t.Fatalf("Delete() on missing id error = %v", err)
	}

	if _, err := db.Get(context.Background(), "tok"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	createTestSession(t, db, "old", "rec_a", now.Add(-time.Hour))
	createTestSession(t, db, "edge", "rec_a", now)
	createTestSession(t, db, "live", "rec_b", now.Add(time.Hour))

	n, err := db.DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteExpired() removed %d rows, want 2", n)
	}
	if _, err := db.Get(context.Background(), "live"); err != nil {
		t.Errorf("live session was removed: %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)

	// Running the migrations a second time on the same connection must be a no-op.
	if err := db.migrate(context.Background()); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}

	var count int
	err := db.conn.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sessions'`,
	).Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if count != 1 {
		t.Errorf("sessions table count = %d, want 1", count)
	}
}
