package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the tri-state review status of a card.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusReview  Status = "review"
	StatusKnown   Status = "known"
)

// Valid reports whether s is one of the three recognised statuses.
func (s Status) Valid() bool {
	return s == StatusUnknown || s == StatusReview || s == StatusKnown
}

// Card is a single front/back study unit. Front and Back hold markdown
// source text; rendering happens at display time, never at rest.
type Card struct {
	ID        string    `json:"id" validate:"required"`
	Front     string    `json:"front"`
	Back      string    `json:"back"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Deck is a named, ordered collection of cards. A card belongs to exactly
// one deck; ownership is by containment in Cards.
type Deck struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	CreatedAt time.Time `json:"createdAt"`
	Cards     []Card    `json:"cards"`
}

// Collection is the full set of decks, the unit the local store persists.
type Collection []Deck

// Stats summarises the status distribution of a deck.
type Stats struct {
	Total   int `json:"total"`
	Known   int `json:"known"`
	Review  int `json:"review"`
	Unknown int `json:"unknown"`
}

// NewDeckID returns a fresh globally unique deck ID. The "deck-" prefix is
// kept for compatibility with previously persisted data; the suffix is a
// random uuid so rapid sequential creation cannot collide.
func NewDeckID() string {
	return "deck-" + uuid.NewString()
}

// NewCardID returns a fresh card ID.
func NewCardID() string {
	return "card-" + uuid.NewString()
}

// NewDeck creates an empty deck with a fresh ID.
func NewDeck(name string) Deck {
	return Deck{
		ID:        NewDeckID(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Cards:     []Card{},
	}
}

// NewCard creates a card with a fresh ID and the default unknown status.
func NewCard(front, back string) Card {
	return Card{
		ID:        NewCardID(),
		Front:     front,
		Back:      back,
		Status:    StatusUnknown,
		CreatedAt: time.Now().UTC(),
	}
}

// Normalize fills in the documented defaults for fields a decoded blob may
// lack: a nil card slice becomes empty and a missing or unrecognised status
// becomes unknown. It is applied after every decode of persisted or
// imported data so older blobs stay readable.
func (c Collection) Normalize() Collection {
	for i := range c {
		if c[i].Cards == nil {
			c[i].Cards = []Card{}
		}
		for j := range c[i].Cards {
			if !c[i].Cards[j].Status.Valid() {
				c[i].Cards[j].Status = StatusUnknown
			}
		}
	}
	return c
}

// Find returns the deck with the given ID, or nil.
func (c Collection) Find(deckID string) *Deck {
	for i := range c {
		if c[i].ID == deckID {
			return &c[i]
		}
	}
	return nil
}

// FindCard returns the card with the given ID inside a deck, or nil.
func (d *Deck) FindCard(cardID string) *Card {
	for i := range d.Cards {
		if d.Cards[i].ID == cardID {
			return &d.Cards[i]
		}
	}
	return nil
}

// Stats counts the deck's cards by status.
func (d *Deck) Stats() Stats {
	s := Stats{Total: len(d.Cards)}
	for _, card := range d.Cards {
		switch card.Status {
		case StatusKnown:
			s.Known++
		case StatusReview:
			s.Review++
		default:
			s.Unknown++
		}
	}
	return s
}
