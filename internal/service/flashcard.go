package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/moodquest/internal/apperror"
	"github.com/sakif/moodquest/internal/model"
	"github.com/sakif/moodquest/internal/repository"
)

// FlashcardService is a read-only view over the flashcards table.
type FlashcardService struct {
	repo   repository.FlashcardRepository
	logger *slog.Logger
}

func NewFlashcardService(repo repository.FlashcardRepository, logger *slog.Logger) *FlashcardService {
	return &FlashcardService{repo: repo, logger: logger}
}

func (s *FlashcardService) List(ctx context.Context) ([]model.FlashcardSummary, error) {
	cards, err := s.repo.ListFlashcards(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing flashcards: %w", err)
	}
	return cards, nil
}

// Get returns apperror.ErrNotFound for an unknown id.
func (s *FlashcardService) Get(ctx context.Context, id string) (*model.Flashcard, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "flashcard ID is required")
	}
	card, err := s.repo.GetFlashcard(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching flashcard: %w", err)
	}
	return card, nil
}
