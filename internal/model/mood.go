package model

// Shape of a generated mood test and the bounds of its score.
const (
	QuestionsPerTest   = 10
	OptionsPerQuestion = 3
	MinMoodScore       = 1
	MaxMoodScore       = 4
)

// MoodQuestion is one multiple-choice item of a generated test.
type MoodQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// MoodTest is returned to the client and never persisted.
type MoodTest struct {
	ID        string         `json:"id"`
	Questions []MoodQuestion `json:"questions"`
}

// MoodAnswer is one answer the client sends back for scoring.
type MoodAnswer struct {
	Question     string `json:"question"`
	ChosenOption string `json:"chosen_option"`
}
