package models

import (
	"fmt"
	"strings"
)

type CardType string

const (
	CardTypeBasic CardType = "basic"
	CardTypeCloze CardType = "cloze"
)

func ParseCardType(s string) (CardType, error) {
	switch CardType(strings.ToLower(strings.TrimSpace(s))) {
	case CardTypeBasic:
		return CardTypeBasic, nil
	case CardTypeCloze:
		return CardTypeCloze, nil
	}
	return "", fmt.Errorf("unknown card type %q", s)
}

// Flashcard is a single generated card. Back is left empty for cloze cards
// by convention only; nothing enforces it.
type Flashcard struct {
	Front string   `json:"front"`
	Back  string   `json:"back,omitempty"`
	Type  CardType `json:"type"`
}

// FlashcardPage holds the cards extracted from one source page.
type FlashcardPage struct {
	Flashcards []Flashcard `json:"flashcards"`
}

func CountFlashcards(pages []FlashcardPage) int {
	total := 0
	for _, page := range pages {
		total += len(page.Flashcards)
	}
	return total
}

// ClonePages returns a deep copy so callers can't mutate the source slices.
func ClonePages(pages []FlashcardPage) []FlashcardPage {
	if pages == nil {
		return nil
	}
	out := make([]FlashcardPage, len(pages))
	for i, page := range pages {
		cards := make([]Flashcard, len(page.Flashcards))
		copy(cards, page.Flashcards)
		out[i] = FlashcardPage{Flashcards: cards}
	}
	return out
}
