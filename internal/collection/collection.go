package collection

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kpauljoseph/ankix/pkg/models"
)

const PagesPerGroup = 3

var (
	ErrOutOfRange   = errors.New("flashcard index out of range")
	ErrUnknownField = errors.New("unknown flashcard field")
	ErrInvalidValue = errors.New("invalid flashcard field value")
)

type Field string

const (
	FieldFront Field = "front"
	FieldBack  Field = "back"
	FieldType  Field = "type"
)

// Collection is the editable set of generated flashcard pages together with
// the pager position used to browse them. It is replaced wholesale on every
// generation and never merged.
type Collection struct {
	mu    sync.Mutex
	pages []models.FlashcardPage
	group int
	page  int
}

func New() *Collection {
	return &Collection{}
}

func (c *Collection) Replace(pages []models.FlashcardPage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pages = models.ClonePages(pages)
	c.group = 0
	c.page = 0
}

func (c *Collection) Pages() []models.FlashcardPage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.ClonePages(c.pages)
}

func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pages)
}

func (c *Collection) CardCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CountFlashcards(c.pages)
}

// EditField overwrites one field of one card. Content is not validated.
func (c *Collection) EditField(pageIndex, cardIndex int, field Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	card, err := c.cardAt(pageIndex, cardIndex)
	if err != nil {
		return err
	}

	switch field {
	case FieldFront:
		card.Front = value
	case FieldBack:
		card.Back = value
	case FieldType:
		cardType, err := models.ParseCardType(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		card.Type = cardType
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// DeleteCard removes a card; later cards on the same page move down by one.
func (c *Collection) DeleteCard(pageIndex, cardIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.cardAt(pageIndex, cardIndex); err != nil {
		return err
	}

	cards := c.pages[pageIndex].Flashcards
	c.pages[pageIndex].Flashcards = append(cards[:cardIndex:cardIndex], cards[cardIndex+1:]...)
	return nil
}

func (c *Collection) cardAt(pageIndex, cardIndex int) (*models.Flashcard, error) {
	if pageIndex < 0 || pageIndex >= len(c.pages) {
		return nil, fmt.Errorf("%w: page %d of %d", ErrOutOfRange, pageIndex, len(c.pages))
	}
	cards := c.pages[pageIndex].Flashcards
	if cardIndex < 0 || cardIndex >= len(cards) {
		return nil, fmt.Errorf("%w: card %d of %d on page %d", ErrOutOfRange, cardIndex, len(cards), pageIndex)
	}
	return &c.pages[pageIndex].Flashcards[cardIndex], nil
}
