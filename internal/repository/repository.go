// Package repository declares the storage interfaces the service layer
// depends on. Implementations live in the sqlite and xata sub-packages.
package repository

import (
	"context"
	"time"

	"github.com/sakif/moodquest/internal/model"
)

// UserRepository is the credential store: user records in the hosted
// document store, looked up by exact-match filter.
//
// FindByLogin returns apperror.ErrNotFound when no record matches and
// apperror.ErrUpstream when the store could not be queried.
type UserRepository interface {
	FindByLogin(ctx context.Context, login string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	Insert(ctx context.Context, user *model.User) error
	// Update writes Statistics and AccountInfo back if the stored record is
	// still at user.Version, and returns apperror.ErrConflict otherwise.
	Update(ctx context.Context, user *model.User) error
	// ListAccounts returns every user whose account_info blob parses.
	ListAccounts(ctx context.Context) ([]model.AccountSummary, error)
}

// SessionRepository is the local sessions table.
type SessionRepository interface {
	// Create returns apperror.ErrConflict if the session id already exists.
	Create(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type FlashcardRepository interface {
	ListFlashcards(ctx context.Context) ([]model.FlashcardSummary, error)
	GetFlashcard(ctx context.Context, id string) (*model.Flashcard, error)
}
