// Package study holds the navigation logic of a study session: an ordered
// run through a deck's cards with flip-agnostic position tracking and an
// optional shuffle. Sessions are pure values over a snapshot of the deck;
// status changes go through the store, not through here.
package study

import (
	"fmt"
	"math/rand"

	"github.com/conorfennell/decksync/internal/domain"
)

// Session is one pass through a deck's cards.
type Session struct {
	cards []domain.Card
	order []int
	index int
}

// New snapshots the given cards into a fresh session starting at the first
// card in deck order.
func New(cards []domain.Card) *Session {
	s := &Session{
		cards: append([]domain.Card(nil), cards...),
		order: make([]int, len(cards)),
	}
	for i := range s.order {
		s.order[i] = i
	}
	return s
}

// Shuffle permutes the card order deterministically for the given seed and
// rewinds to the first card. The same seed always yields the same order, so
// a stateless caller can reproduce a shuffled session from the seed alone.
func (s *Session) Shuffle(seed int64) {
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(s.order), func(i, j int) {
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})
	s.index = 0
}

// Len returns the number of cards in the session.
func (s *Session) Len() int { return len(s.cards) }

// Index returns the current zero-based position.
func (s *Session) Index() int { return s.index }

// Current returns the card at the current position, or nil for an empty
// session.
func (s *Session) Current() *domain.Card {
	if len(s.cards) == 0 {
		return nil
	}
	return &s.cards[s.order[s.index]]
}

// Next advances one card. It reports whether the position moved.
func (s *Session) Next() bool {
	if s.index+1 >= len(s.cards) {
		return false
	}
	s.index++
	return true
}

// Prev steps back one card. It reports whether the position moved.
func (s *Session) Prev() bool {
	if s.index == 0 {
		return false
	}
	s.index--
	return true
}

// Seek jumps to position i, clamped to the valid range.
func (s *Session) Seek(i int) {
	if len(s.cards) == 0 {
		s.index = 0
		return
	}
	if i < 0 {
		i = 0
	}
	if i > len(s.cards)-1 {
		i = len(s.cards) - 1
	}
	s.index = i
}

// Progress returns the one-based position, the total, and the percentage
// through the session.
func (s *Session) Progress() (pos, total int, percent float64) {
	total = len(s.cards)
	if total == 0 {
		return 0, 0, 0
	}
	pos = s.index + 1
	percent = float64(pos) / float64(total) * 100
	return pos, total, percent
}

// Counter renders the position label shown above the card.
func (s *Session) Counter() string {
	pos, total, _ := s.Progress()
	return fmt.Sprintf("Card %d of %d", pos, total)
}
