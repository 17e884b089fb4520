package models

import (
	"errors"
	"testing"
)

func TestNewDeck(t *testing.T) {
	tests := []struct {
		name    string
		cards   []Card
		wantErr error
		wantLen int
	}{
		{
			name:    "empty deck",
			cards:   nil,
			wantErr: ErrEmptyDeck,
		},
		{
			name: "valid deck",
			cards: []Card{
				{ID: 3, FirstPhrase: "C", SecondPhrase: "c"},
				{ID: 1, FirstPhrase: "A", SecondPhrase: "a"},
				{ID: 2, FirstPhrase: "B", SecondPhrase: "b"},
			},
			wantLen: 3,
		},
		{
			name: "duplicate id",
			cards: []Card{
				{ID: 1, FirstPhrase: "A"},
				{ID: 1, FirstPhrase: "A again"},
			},
			wantErr: ErrDuplicateCardID,
		},
		{
			name:    "zero id",
			cards:   []Card{{ID: 0, FirstPhrase: "A"}},
			wantErr: ErrInvalidCardID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deck, err := NewDeck("test", tt.cards)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewDeck() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewDeck() unexpected error: %v", err)
			}
			if deck.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", deck.Len(), tt.wantLen)
			}
		})
	}
}

func TestDeckIDsAreSortedCopies(t *testing.T) {
	deck, err := NewDeck("test", []Card{{ID: 5}, {ID: 2}, {ID: 9}})
	if err != nil {
		t.Fatalf("NewDeck() error: %v", err)
	}

	ids := deck.IDs()
	want := []int{2, 5, 9}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("IDs() = %v, want %v", ids, want)
		}
	}

	ids[0] = 100
	if deck.IDs()[0] != 2 {
		t.Error("mutating the returned slice changed the deck")
	}
}

func TestDeckCardLookup(t *testing.T) {
	deck, err := NewDeck("test", []Card{{ID: 7, FirstPhrase: "秋の田の", SecondPhrase: "わが衣手は"}})
	if err != nil {
		t.Fatalf("NewDeck() error: %v", err)
	}

	card, ok := deck.Card(7)
	if !ok {
		t.Fatal("Card(7) not found")
	}
	if card.FirstPhrase != "秋の田の" {
		t.Errorf("FirstPhrase = %q", card.FirstPhrase)
	}
	if _, ok := deck.Card(8); ok {
		t.Error("Card(8) should not exist")
	}
	if deck.Name() != "test" {
		t.Errorf("Name() = %q, want test", deck.Name())
	}
}
