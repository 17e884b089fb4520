package models

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrEmptyDeck is returned when a deck would contain no cards
	ErrEmptyDeck = errors.New("deck has no cards")
	// ErrInvalidCardID is returned for ids that are not positive
	ErrInvalidCardID = errors.New("card id must be positive")
	// ErrDuplicateCardID is returned when two cards share an id
	ErrDuplicateCardID = errors.New("duplicate card id")
)

// Card is one poem card: its number, the phrase read aloud and the phrase to recall
type Card struct {
	ID           int
	FirstPhrase  string
	SecondPhrase string
}

// Deck is an immutable set of cards keyed by id
type Deck struct {
	name  string
	ids   []int
	cards map[int]Card
}

// NewDeck builds a deck from cards. Ids must be positive and unique.
func NewDeck(name string, cards []Card) (*Deck, error) {
	if len(cards) == 0 {
		return nil, ErrEmptyDeck
	}

	d := &Deck{
		name:  name,
		ids:   make([]int, 0, len(cards)),
		cards: make(map[int]Card, len(cards)),
	}
	for _, c := range cards {
		if c.ID <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidCardID, c.ID)
		}
		if _, exists := d.cards[c.ID]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateCardID, c.ID)
		}
		d.cards[c.ID] = c
		d.ids = append(d.ids, c.ID)
	}
	sort.Ints(d.ids)

	return d, nil
}

// Name returns the name of the source the deck was loaded from
func (d *Deck) Name() string {
	return d.name
}

// Len returns the number of cards
func (d *Deck) Len() int {
	return len(d.ids)
}

// IDs returns a fresh ascending slice of every card id
func (d *Deck) IDs() []int {
	ids := make([]int, len(d.ids))
	copy(ids, d.ids)
	return ids
}

// Card looks up a card by id
func (d *Deck) Card(id int) (Card, bool) {
	c, ok := d.cards[id]
	return c, ok
}

// Cards returns every card in ascending id order
func (d *Deck) Cards() []Card {
	cards := make([]Card, 0, len(d.ids))
	for _, id := range d.ids {
		cards = append(cards, d.cards[id])
	}
	return cards
}
