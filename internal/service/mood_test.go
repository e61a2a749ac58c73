package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sakif/moodquest/internal/apperror"
	"github.com/sakif/moodquest/internal/model"
)

func tenAnswers() []model.MoodAnswer {
	answers := make([]model.MoodAnswer, model.QuestionsPerTest)
	for i := range answers {
		answers[i] = model.MoodAnswer{Question: fmt.Sprintf("Q%d", i+1), ChosenOption: "Okay"}
	}
	return answers
}

func newTestMoodService(t *testing.T, engine *fakeEngine) (*MoodService, *mockUserRepo, string) {
	t.Helper()
	accounts, users := newTestAccountService(t)
	id := seedUser(t, users, "alice", 0, 0)
	return NewMoodService(engine, accounts, discardLogger()), users, id
}

func TestGenerateTest(t *testing.T) {
	questions := make([]model.MoodQuestion, model.QuestionsPerTest)
	svc, _, _ := newTestMoodService(t, &fakeEngine{questions: questions})

	test, err := svc.GenerateTest(context.Background())
	if err != nil {
		t.Fatalf("GenerateTest() error = %v", err)
	}
	if test.ID == "" || len(test.Questions) != model.QuestionsPerTest {
		t.Errorf("GenerateTest() = %+v", test)
	}
}

func TestGenerateTest_EmptyIsFailure(t *testing.T) {
	svc, _, _ := newTestMoodService(t, &fakeEngine{})

	test, err := svc.GenerateTest(context.Background())
	if !errors.Is(err, apperror.ErrUpstream) {
		t.Fatalf("GenerateTest() error = %v, want Upstream", err)
	}
	if test != nil {
		t.Error("GenerateTest() returned a test alongside an error")
	}
}

func TestSubmitAnswers_SavesScore(t *testing.T) {
	engine := &fakeEngine{score: 3, scoreOK: true}
	svc, users, id := newTestMoodService(t, engine)

	score, err := svc.SubmitAnswers(context.Background(), id, tenAnswers())
	if err != nil {
		t.Fatalf("SubmitAnswers() error = %v", err)
	}
	if score != 3 {
		t.Errorf("score = %d, want 3", score)
	}
	if ms := users.stored(id).AccountInfo.MoodStatus; ms == nil || *ms != 3 {
		t.Errorf("mood_status = %v, want 3", ms)
	}
}

func TestSubmitAnswers_NoScoreWritesNothing(t *testing.T) {
	svc, users, id := newTestMoodService(t, &fakeEngine{scoreOK: false})

	_, err := svc.SubmitAnswers(context.Background(), id, tenAnswers())
	if !errors.Is(err, apperror.ErrUpstream) {
		t.Fatalf("SubmitAnswers() error = %v, want Upstream", err)
	}
	if ms := users.stored(id).AccountInfo.MoodStatus; ms != nil {
		t.Errorf("mood_status written on failed analysis: %d", *ms)
	}
	if users.updateCalls != 0 {
		t.Errorf("Update called %d times", users.updateCalls)
	}
}

func TestSubmitAnswers_Validation(t *testing.T) {
	blank := tenAnswers()
	blank[4].ChosenOption = " "

	tests := []struct {
		name    string
		answers []model.MoodAnswer
	}{
		{"none", nil},
		{"too few", tenAnswers()[:9]},
		{"too many", append(tenAnswers(), model.MoodAnswer{Question: "Q11", ChosenOption: "x"})},
		{"blank option", blank},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{score: 2, scoreOK: true}
			svc, _, id := newTestMoodService(t, engine)

			_, err := svc.SubmitAnswers(context.Background(), id, tt.answers)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("SubmitAnswers() error = %v, want Validation", err)
			}
			if len(engine.scored) != 0 {
				t.Error("invalid answers were sent for scoring")
			}
		})
	}
}
