package model

// FlashcardSummary is a row of the flashcard catalogue.
type FlashcardSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Flashcard is a single deck with its content.
type Flashcard struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}
