package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/moodquest/internal/model"
	"github.com/sakif/moodquest/internal/service"
)

// MoodTestIDHeader carries the generated test's id; the body is the bare
// question list.
const MoodTestIDHeader = "X-Mood-Test-Id"

// MoodHandler serves the mood test round trip.
type MoodHandler struct {
	mood   *service.MoodService
	logger *slog.Logger
}

func NewMoodHandler(mood *service.MoodService, logger *slog.Logger) *MoodHandler {
	return &MoodHandler{mood: mood, logger: logger}
}

// MoodScoreResponse is the body of a scored submission.
type MoodScoreResponse struct {
	MoodScore int    `json:"mood_score"`
	Status    string `json:"status"`
}

// HandleGetTest generates a fresh test of 10 questions with 3 options each.
//
// HTTP: GET /mood/test
func (h *MoodHandler) HandleGetTest(w http.ResponseWriter, r *http.Request) {
	test, err := h.mood.GenerateTest(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set(MoodTestIDHeader, test.ID)
	writeJSON(w, http.StatusOK, test.Questions)
}

// HandleSubmit scores the answers and saves the result as mood_status.
//
// HTTP: POST /mood/test
// REQUEST BODY: [{"question": "...", "chosen_option": "..."}, ...] (10 entries)
func (h *MoodHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	var answers []model.MoodAnswer
	if err := readJSON(w, r, &answers); err != nil {
		writeError(w, h.logger, err)
		return
	}

	score, err := h.mood.SubmitAnswers(r.Context(), id, answers)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MoodScoreResponse{MoodScore: score, Status: "saved"})
}
