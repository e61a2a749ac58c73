package xata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/sakif/moodquest/internal/apperror"
	"github.com/sakif/moodquest/internal/model"
	"github.com/sakif/moodquest/internal/repository"
)

const flashcardsTable = "flashcards"

var _ repository.FlashcardRepository = (*Client)(nil)

type flashcardRecord struct {
	recordMeta
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ListFlashcards returns the id and name of every flashcard deck.
func (c *Client) ListFlashcards(ctx context.Context) ([]model.FlashcardSummary, error) {
	out := []model.FlashcardSummary{}
	err := c.scan(ctx, flashcardsTable, queryRequest{
		Columns: []string{"id", "name"},
	}, func(raw json.RawMessage) {
		var rec flashcardRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return
		}
		out = append(out, model.FlashcardSummary{ID: rec.id(), Name: rec.Name})
	})
	if err != nil {
		return nil, apperror.Upstream("document store unavailable", err)
	}
	return out, nil
}

// GetFlashcard reads one deck by record id.
func (c *Client) GetFlashcard(ctx context.Context, id string) (*model.Flashcard, error) {
	var rec flashcardRecord
	err := c.do(ctx, http.MethodGet, "/tables/"+flashcardsTable+"/data/"+url.PathEscape(id), nil, nil, &rec)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, apperror.NotFound("flashcard", id)
		}
		return nil, apperror.Upstream("document store unavailable", err)
	}
	return &model.Flashcard{ID: rec.id(), Content: rec.Content}, nil
}
