package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/moodquest/internal/apperror"
	"github.com/sakif/moodquest/internal/model"
)

// MoodEngine is the generate/score pipeline MoodService drives.
type MoodEngine interface {
	Generate(ctx context.Context) []model.MoodQuestion
	Score(ctx context.Context, answers []model.MoodAnswer) (int, bool)
}

// MoodService runs the mood test round trip: generate, collect answers,
// score, and persist the score as the user's mood_status.
type MoodService struct {
	engine   MoodEngine
	accounts *AccountService
	logger   *slog.Logger
}

func NewMoodService(engine MoodEngine, accounts *AccountService, logger *slog.Logger) *MoodService {
	return &MoodService{engine: engine, accounts: accounts, logger: logger}
}

// GenerateTest produces a fresh test. An empty generation is an upstream
// failure, never a valid zero-question test.
func (s *MoodService) GenerateTest(ctx context.Context) (*model.MoodTest, error) {
	questions := s.engine.Generate(ctx)
	if len(questions) == 0 {
		return nil, apperror.Upstream("mood test generation failed", nil)
	}

	test := &model.MoodTest{
		ID:        xid.New().String(),
		Questions: questions,
	}
	s.logger.Debug("mood test generated", slog.String("testID", test.ID))
	return test, nil
}

// SubmitAnswers scores the answers and stores the score. When no score can
// be obtained nothing is written.
func (s *MoodService) SubmitAnswers(ctx context.Context, userID string, answers []model.MoodAnswer) (int, error) {
	if err := validateAnswers(answers); err != nil {
		return 0, err
	}

	score, ok := s.engine.Score(ctx, answers)
	if !ok {
		return 0, apperror.Upstream("mood analysis failed", nil)
	}

	if err := s.accounts.SetMoodStatus(ctx, userID, score); err != nil {
		return 0, err
	}

	s.logger.Info("mood score saved",
		slog.String("userID", userID),
		slog.Int("score", score),
	)
	return score, nil
}

func validateAnswers(answers []model.MoodAnswer) error {
	if len(answers) != model.QuestionsPerTest {
		return apperror.ValidationFailed("answers",
			fmt.Sprintf("expected %d answers, got %d", model.QuestionsPerTest, len(answers)))
	}
	for i, a := range answers {
		if strings.TrimSpace(a.Question) == "" || strings.TrimSpace(a.ChosenOption) == "" {
			return apperror.ValidationFailed("answers",
				fmt.Sprintf("answer %d needs both question and chosen_option", i+1))
		}
	}
	return nil
}
