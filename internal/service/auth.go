package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/moodquest/internal/apperror"
	"github.com/sakif/moodquest/internal/auth"
	"github.com/sakif/moodquest/internal/model"
	"github.com/sakif/moodquest/internal/repository"
)

const MaxLoginLength = 64

// AuthService handles registration and credential checks.
//
//	AuthHandler → AuthService → UserRepository (document store)
//	                          ↘ SessionService (local table)
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	sessions  *SessionService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	sessions *SessionService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		sessions:  sessions,
		logger:    logger,
	}
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	SessionKey string
	ExpiresIn  time.Duration
	UserID     string
}

// Register creates a user with default statistics and account info.
//
// The existence check and the insert are two separate store calls, so two
// concurrent registrations of the same login can both pass the check. The
// store's unique constraint on login is the backstop; its rejection comes
// back as apperror.ErrConflict just like the check's.
func (s *AuthService) Register(ctx context.Context, login, password string) (*model.User, error) {
	login = strings.TrimSpace(login)
	if err := validateCredentials(login, password); err != nil {
		return nil, err
	}

	_, err := s.users.FindByLogin(ctx, login)
	switch {
	case err == nil:
		return nil, apperror.Conflict("login already exists")
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("registering %q: %w", login, err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("registering %q: %w", login, err)
	}

	user := model.NewUser(login, hash)
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Conflict("login already exists")
		}
		return nil, fmt.Errorf("registering %q: %w", login, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)
	return user, nil
}

// Login checks the credentials and opens a new session. An unknown login and
// a wrong password are indistinguishable to the caller; a store failure is
// not reported as bad credentials.
func (s *AuthService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	user, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("logging in %q: %w", login, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash is unusable",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthorized("invalid credentials")
	}

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("logging in %q: %w", login, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &LoginResult{
		SessionKey: session.ID,
		ExpiresIn:  s.sessions.TTL(),
		UserID:     user.ID,
	}, nil
}

// Logout revokes the session token. It is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

func validateCredentials(login, password string) error {
	if login == "" {
		return apperror.ValidationFailed("login", "login is required")
	}
	if len(login) > MaxLoginLength {
		return apperror.ValidationFailed("login",
			fmt.Sprintf("login must be %d characters or less", MaxLoginLength))
	}
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	return nil
}
