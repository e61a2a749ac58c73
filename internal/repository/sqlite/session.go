package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/sakif/moodquest/internal/apperror"
	"github.com/sakif/moodquest/internal/model"
	"github.com/sakif/moodquest/internal/repository"
)

// compile-time check that *DB implements repository.SessionRepository
var _ repository.SessionRepository = (*DB)(nil)

// expires_at is stored as Unix nanoseconds so expiry comparisons are exact
// and the prune query can use the index.

// Create inserts a session row. A duplicate session_id is reported as
// apperror.ErrConflict so the caller can generate a fresh token.
func (db *DB) Create(ctx context.Context, s *model.Session) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, expires_at) VALUES (?, ?, ?)`,
		s.ID,
		s.UserID,
		s.ExpiresAt.UnixNano(),
	)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return apperror.Conflict("session id already in use")
		}
		return fmt.Errorf("sqlite: inserting session for user %s: %w", s.UserID, err)
	}
	return nil
}

// Get returns the session with the given id, expired or not.
// Returns apperror.ErrNotFound if no row exists.
func (db *DB) Get(ctx context.Context, id string) (*model.Session, error) {
	var (
		s         model.Session
		expiresAt int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT session_id, user_id, expires_at FROM sessions WHERE session_id = ?`,
		id,
	).Scan(&s.ID, &s.UserID, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", "<redacted>")
		}
		return nil, fmt.Errorf("sqlite: getting session: %w", err)
	}

	s.ExpiresAt = time.Unix(0, expiresAt)
	return &s, nil
}

// Delete removes a session. Deleting a missing id is not an error.
func (db *DB) Delete(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session whose expiry is at or before now and
// reports how many rows went away.
func (db *DB) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting expired sessions: %w", err)
	}
	return n, nil
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
}
