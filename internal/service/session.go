// Package service contains the business logic layer of the application.
//
// THE LAYERS:
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates input, enforces rules, orchestrates stores
//	Repository      → local session table and the hosted document store
//
// Services take repository interfaces, never concrete stores, so tests run
// against in-memory fakes (see fakes_test.go) and the HTTP layer never
// touches storage directly.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/moodquest/internal/apperror"
	"github.com/sakif/moodquest/internal/auth"
	"github.com/sakif/moodquest/internal/model"
	"github.com/sakif/moodquest/internal/repository"
)

// DefaultSessionTTL is the fixed lifetime of a session from issuance.
const DefaultSessionTTL = 30 * 24 * time.Hour

// maxTokenAttempts bounds regeneration after a session id collision.
const maxTokenAttempts = 3

// SessionService issues, validates and revokes opaque session tokens.
//
// Sessions have an absolute lifetime: validation never extends expiry.
type SessionService struct {
	repo     repository.SessionRepository
	ttl      time.Duration
	now      func() time.Time
	newToken func() (string, error)
	logger   *slog.Logger
}

// NewSessionService creates a SessionService. A non-positive ttl falls back
// to DefaultSessionTTL.
func NewSessionService(repo repository.SessionRepository, ttl time.Duration, logger *slog.Logger) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		repo:     repo,
		ttl:      ttl,
		now:      time.Now,
		newToken: auth.NewSessionToken,
		logger:   logger,
	}
}

// TTL is the lifetime given to new sessions.
func (s *SessionService) TTL() time.Duration { return s.ttl }

// Create stores a new session for userID. A token that collides with an
// existing row is regenerated.
func (s *SessionService) Create(ctx context.Context, userID string) (*model.Session, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("user_id", "user ID is required")
	}

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return nil, fmt.Errorf("creating session: %w", err)
		}

		session := &model.Session{
			ID:        token,
			UserID:    userID,
			ExpiresAt: s.now().Add(s.ttl),
		}
		err = s.repo.Create(ctx, session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("creating session: %w", err)
		}
		s.logger.Warn("session id collision, regenerating", slog.Int("attempt", attempt))
	}

	return nil, fmt.Errorf("creating session: %w", apperror.Conflict("could not allocate a unique session id"))
}

// Validate returns the owning user id of a live session. Unknown and expired
// tokens both yield apperror.ErrUnauthorized.
func (s *SessionService) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperror.Unauthorized("missing session token")
	}

	session, err := s.repo.Get(ctx, token)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Unauthorized("invalid or expired session")
		}
		return "", fmt.Errorf("validating session: %w", err)
	}

	if session.ExpiredAt(s.now()) {
		return "", apperror.Unauthorized("invalid or expired session")
	}
	return session.UserID, nil
}

// Revoke deletes the session. Revoking an unknown token is not an error.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.Delete(ctx, token); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// Prune deletes every session whose expiry is at or before now.
func (s *SessionService) Prune(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired sessions pruned", slog.Int64("count", n))
	}
	return n, nil
}

// RunReaper prunes expired sessions every interval until ctx is cancelled.
func (s *SessionService) RunReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Prune(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("session reaper failed", slog.String("error", err.Error()))
			}
		}
	}
}
