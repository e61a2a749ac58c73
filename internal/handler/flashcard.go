package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/moodquest/internal/service"
)

// FlashcardHandler serves read-only flashcards.
type FlashcardHandler struct {
	flashcards *service.FlashcardService
	logger     *slog.Logger
}

func NewFlashcardHandler(flashcards *service.FlashcardService, logger *slog.Logger) *FlashcardHandler {
	return &FlashcardHandler{flashcards: flashcards, logger: logger}
}

// HandleList returns every flashcard's id and name.
//
// HTTP: GET /flashcards/database
func (h *FlashcardHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	cards, err := h.flashcards.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// HandleGet returns one flashcard's content.
//
// HTTP: GET /flashcards/{id}
func (h *FlashcardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	card, err := h.flashcards.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}
