// Package store exposes the deck/card CRUD surface the views consume. It
// composes the local store with an optional sync engine: every mutation
// loads the current collection, applies the change, and writes back through
// the local store, whose save hook schedules background replication. Reads
// never touch the remote store.
package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/decksync/internal/domain"
	"github.com/conorfennell/decksync/internal/localstore"
	"github.com/conorfennell/decksync/internal/syncer"
)

// Manager is the domain API. A nil engine means local-only mode; everything
// else behaves identically.
type Manager struct {
	mu       sync.Mutex
	local    *localstore.Store
	engine   *syncer.Engine
	log      *slog.Logger
	validate *validator.Validate
}

// New wires the manager to its stores. The local store's save hook is
// pointed at the engine's trigger so every successful save schedules a
// background sync pass.
func New(local *localstore.Store, engine *syncer.Engine, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if engine != nil {
		local.OnSave = func() { engine.Trigger() }
	}
	return &Manager{
		local:    local,
		engine:   engine,
		log:      logger,
		validate: validator.New(),
	}
}

// Engine returns the sync engine, or nil in local-only mode.
func (m *Manager) Engine() *syncer.Engine { return m.engine }

// Init prepares the local store on process start. A populated local store
// wins and merely schedules a sync; an empty one is seeded from the remote
// store when possible, otherwise initialized empty. A remote failure here
// resolves immediately to empty, it never blocks startup.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	collection, ok, err := m.local.Load()
	if err != nil {
		return err
	}
	if ok && len(collection) > 0 {
		if m.engine != nil {
			m.engine.Trigger()
		}
		return nil
	}

	if m.engine != nil {
		seeded, err := m.engine.Bootstrap(ctx)
		if err != nil {
			m.log.Warn("remote bootstrap failed, starting empty", "error", err)
		} else if len(seeded) > 0 {
			m.log.Info("seeded local store from remote", "decks", len(seeded))
			return m.local.Save(seeded)
		}
	}
	return m.local.Save(domain.Collection{})
}

// loadLocked reads the current collection. Read and deserialize failures
// degrade to an empty collection so the application stays usable; the
// caller must hold m.mu.
func (m *Manager) loadLocked() domain.Collection {
	collection, ok, err := m.local.Load()
	if err != nil {
		m.log.Error("failed to read local store", "error", err)
	}
	if !ok || collection == nil {
		return domain.Collection{}
	}
	return collection
}

// CreateDeck creates an empty deck. Name emptiness is the caller's concern.
func (m *Manager) CreateDeck(name string) (*domain.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	collection := m.loadLocked()
	deck := domain.NewDeck(name)
	collection = append(collection, deck)
	if err := m.local.Save(collection); err != nil {
		return nil, err
	}
	return &deck, nil
}

// Decks returns all decks.
func (m *Manager) Decks() domain.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked()
}

// Deck returns one deck by ID, or nil.
func (m *Manager) Deck(deckID string) *domain.Deck {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked().Find(deckID)
}

// DeleteDeck removes a deck and all its cards, locally at once and remotely
// best-effort. Deleting an unknown ID is a no-op.
func (m *Manager) DeleteDeck(deckID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	collection := m.loadLocked()
	filtered := make(domain.Collection, 0, len(collection))
	for _, d := range collection {
		if d.ID != deckID {
			filtered = append(filtered, d)
		}
	}
	if err := m.local.Save(filtered); err != nil {
		return err
	}
	if m.engine != nil {
		m.engine.PushDeckDelete(deckID)
	}
	return nil
}

// UpdateDeckName renames a deck. Unknown IDs are a no-op.
func (m *Manager) UpdateDeckName(deckID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	collection := m.loadLocked()
	deck := collection.Find(deckID)
	if deck == nil {
		return nil
	}
	deck.Name = name
	return m.local.Save(collection)
}

// AddCard appends a card to a deck. Returns nil without error when the deck
// does not exist.
func (m *Manager) AddCard(deckID, front, back string) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	collection := m.loadLocked()
	deck := collection.Find(deckID)
	if deck == nil {
		return nil, nil
	}
	card := domain.NewCard(front, back)
	deck.Cards = append(deck.Cards, card)
	if err := m.local.Save(collection); err != nil {
		return nil, err
	}
	return &card, nil
}

// Cards returns the cards of a deck, empty when the deck does not exist.
func (m *Manager) Cards(deckID string) []domain.Card {
	m.mu.Lock()
	defer m.mu.Unlock()

	deck := m.loadLocked().Find(deckID)
	if deck == nil {
		return []domain.Card{}
	}
	return deck.Cards
}

// Card returns one card, or nil.
func (m *Manager) Card(deckID, cardID string) *domain.Card {
	m.mu.Lock()
	defer m.mu.Unlock()

	deck := m.loadLocked().Find(deckID)
	if deck == nil {
		return nil
	}
	return deck.FindCard(cardID)
}

// UpdateCard replaces a card's front and back text.
func (m *Manager) UpdateCard(deckID, cardID, front, back string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	collection := m.loadLocked()
	deck := collection.Find(deckID)
	if deck == nil {
		return nil
	}
	card := deck.FindCard(cardID)
	if card == nil {
		return nil
	}
	card.Front = front
	card.Back = back
	return m.local.Save(collection)
}

// DeleteCard removes a card from its deck, pushing a best-effort remote
// delete.
func (m *Manager) DeleteCard(deckID, cardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	collection := m.loadLocked()
	deck := collection.Find(deckID)
	if deck == nil {
		return nil
	}
	filtered := make([]domain.Card, 0, len(deck.Cards))
	for _, c := range deck.Cards {
		if c.ID != cardID {
			filtered = append(filtered, c)
		}
	}
	deck.Cards = filtered
	if err := m.local.Save(collection); err != nil {
		return err
	}
	if m.engine != nil {
		m.engine.PushCardDelete(cardID)
	}
	return nil
}

// UpdateCardStatus sets a card's review status. Idempotent: re-applying the
// same status changes nothing.
func (m *Manager) UpdateCardStatus(deckID, cardID string, status domain.Status) error {
	if !status.Valid() {
		return &ValidationError{Field: "status", Value: string(status)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	collection := m.loadLocked()
	deck := collection.Find(deckID)
	if deck == nil {
		return nil
	}
	card := deck.FindCard(cardID)
	if card == nil {
		return nil
	}
	card.Status = status
	return m.local.Save(collection)
}

// Stats counts a deck's cards by status. Unknown decks yield zero counts.
func (m *Manager) Stats(deckID string) domain.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	deck := m.loadLocked().Find(deckID)
	if deck == nil {
		return domain.Stats{}
	}
	return deck.Stats()
}

// ExportData serializes the full collection as pretty-printed JSON.
func (m *Manager) ExportData() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := json.MarshalIndent(m.loadLocked(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ImportData replaces the collection with the given JSON export. It
// validates the top-level shape and per-deck required fields before
// committing; on any mismatch it returns false and leaves existing state
// untouched.
func (m *Manager) ImportData(jsonData string) bool {
	var incoming domain.Collection
	if err := json.Unmarshal([]byte(jsonData), &incoming); err != nil {
		m.log.Warn("import rejected: not a deck array", "error", err)
		return false
	}
	if incoming == nil {
		m.log.Warn("import rejected: top-level value is not an array")
		return false
	}
	incoming = incoming.Normalize()
	for _, deck := range incoming {
		if err := m.validate.Struct(deck); err != nil {
			m.log.Warn("import rejected: invalid deck", "deck_id", deck.ID, "error", err)
			return false
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.local.Save(incoming); err != nil {
		m.log.Error("import failed to persist", "error", err)
		return false
	}
	return true
}

// ClearAll drops the persisted state and re-initializes to an empty
// collection. Remote rows are not mass-deleted; reconciliation never
// deletes.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.local.Clear(); err != nil {
		return err
	}
	return m.local.Save(domain.Collection{})
}
