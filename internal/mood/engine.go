// Package mood generates and scores mood tests using an external
// text-generation model.
//
// Model output is untrusted free text. The parsers in this package turn it
// into either a fully valid value (10 questions with 3 options each, or one
// score in 1..4) or a parse failure. Nothing in between leaves the package.
package mood

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/moodquest/internal/model"
)

// GenerationPrompt asks the model for a fixed-shape test.
const GenerationPrompt = "Create a JSON-formatted mood test with 10 questions. " +
	"Each question must have: 'question' and 'options' (3 items). " +
	"Format: List[Dict]. No explanations. Just test and nothing else, without any additional information"

const scoringPreamble = "Analyze mood from answers (1-4 scale). " +
	"Return only the numerical score. " +
	"Answers:\n"

// Completer is the text-generation call the engine depends on.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Engine runs the generate and score round trips.
type Engine struct {
	llm    Completer
	logger *slog.Logger
}

func NewEngine(llm Completer, logger *slog.Logger) *Engine {
	return &Engine{llm: llm, logger: logger}
}

// Generate asks the model for a new test. It returns nil when the call fails
// or the answer does not parse into exactly 10 well-formed questions; callers
// must treat an empty result as a failed generation.
func (e *Engine) Generate(ctx context.Context) []model.MoodQuestion {
	text, err := e.llm.Complete(ctx, GenerationPrompt)
	if err != nil {
		e.logger.Warn("mood test generation call failed", slog.String("error", err.Error()))
		return nil
	}

	questions, err := ParseQuestions(text)
	if err != nil {
		e.logger.Warn("failed to parse generated mood test",
			slog.String("error", err.Error()),
			slog.Int("response_bytes", len(text)),
		)
		return nil
	}
	return questions
}

// Score asks the model to rate the answers. ok is false when the call fails
// or the reply does not start with a digit in 1..4.
func (e *Engine) Score(ctx context.Context, answers []model.MoodAnswer) (score int, ok bool) {
	prompt, err := ScoringPrompt(answers)
	if err != nil {
		e.logger.Error("building scoring prompt", slog.String("error", err.Error()))
		return 0, false
	}

	text, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		e.logger.Warn("mood scoring call failed", slog.String("error", err.Error()))
		return 0, false
	}

	score, ok = ParseScore(text)
	if !ok {
		e.logger.Warn("invalid mood analysis response", slog.Int("response_bytes", len(text)))
	}
	return score, ok
}

// ScoringPrompt embeds the answers as indented JSON after a fixed preamble.
func ScoringPrompt(answers []model.MoodAnswer) (string, error) {
	buf, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return "", fmt.Errorf("mood: encoding answers: %w", err)
	}
	return scoringPreamble + string(buf), nil
}

var (
	ErrNotJSON  = errors.New("mood: response is not a JSON list of questions")
	ErrBadShape = errors.New("mood: generated test has the wrong shape")
)

// ParseQuestions strips code fences from a model reply and decodes it as a
// list of exactly model.QuestionsPerTest questions, each with a non-empty
// question text and exactly model.OptionsPerQuestion non-empty options.
func ParseQuestions(text string) ([]model.MoodQuestion, error) {
	text = stripFences(text)

	var questions []model.MoodQuestion
	if err := json.Unmarshal([]byte(text), &questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}

	if len(questions) != model.QuestionsPerTest {
		return nil, fmt.Errorf("%w: %d questions, want %d", ErrBadShape, len(questions), model.QuestionsPerTest)
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			return nil, fmt.Errorf("%w: question %d has no text", ErrBadShape, i+1)
		}
		if len(q.Options) != model.OptionsPerQuestion {
			return nil, fmt.Errorf("%w: question %d has %d options, want %d",
				ErrBadShape, i+1, len(q.Options), model.OptionsPerQuestion)
		}
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return nil, fmt.Errorf("%w: question %d has an empty option", ErrBadShape, i+1)
			}
		}
	}
	return questions, nil
}

// ParseScore reads the score from the first character of the trimmed reply.
func ParseScore(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	c := text[0]
	if c < '0'+model.MinMoodScore || c > '0'+model.MaxMoodScore {
		return 0, false
	}
	return int(c - '0'), true
}

func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
