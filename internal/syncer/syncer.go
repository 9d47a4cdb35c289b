// Package syncer reconciles the local collection into the remote table
// store. Replication is best-effort and push-only: local data is
// authoritative, a failed pass is simply retried from scratch on the next
// local save, and the pass never deletes remote rows it cannot account for.
package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conorfennell/decksync/internal/domain"
	"github.com/conorfennell/decksync/internal/remote"
)

// State is the engine's externally visible sync status.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateSuccess State = "success"
	StateError   State = "error"
)

// ErrInFlight is returned by Run when a pass is already running.
var ErrInFlight = errors.New("sync pass already in flight")

// Remote is the subset of the table client the engine needs. It is an
// interface so tests can substitute a counting fake.
type Remote interface {
	Select(ctx context.Context, table string, filter remote.Filter, out any) error
	Insert(ctx context.Context, table string, row, out any) error
	Update(ctx context.Context, table string, filter remote.Filter, patch, out any) error
	Delete(ctx context.Context, table string, filter remote.Filter) error
}

// Local is the engine's read-only view of the local store.
type Local interface {
	Load() (domain.Collection, bool, error)
}

// Engine pushes the local collection toward the remote store. At most one
// pass is in flight at a time; a trigger arriving mid-pass is dropped, not
// queued — the next local save re-triggers, so nothing is lost locally.
type Engine struct {
	local  Local
	remote Remote
	log    *slog.Logger

	// ResetDelay is how long a terminal success status lingers before the
	// engine reports idle again. Exposed for tests.
	ResetDelay time.Duration

	inFlight atomic.Bool
	wg       sync.WaitGroup

	mu       sync.Mutex
	state    State
	lastSync time.Time
}

// New creates an engine over the given stores. If logger is nil the default
// slog logger is used.
func New(local Local, rem Remote, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		local:      local,
		remote:     rem,
		log:        logger,
		ResetDelay: 3 * time.Second,
		state:      StateIdle,
	}
}

// State returns the current sync status.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastSync returns the completion time of the last successful pass.
func (e *Engine) LastSync() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// Trigger starts a pass in the background. It returns false when a pass is
// already in flight and the trigger was dropped. Trigger never blocks.
func (e *Engine) Trigger() bool {
	if !e.inFlight.CompareAndSwap(false, true) {
		return false
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.inFlight.Store(false)
		e.pass(context.Background())
	}()
	return true
}

// Run executes one pass synchronously. It exists so the CLI and tests can
// observe completion deterministically.
func (e *Engine) Run(ctx context.Context) error {
	if !e.inFlight.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	defer e.inFlight.Store(false)
	return e.pass(ctx)
}

// Wait blocks until all background work (passes and deletion pushes) has
// finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// pass runs one reconciliation and handles the status transitions around it.
func (e *Engine) pass(ctx context.Context) error {
	e.setState(StateSyncing)

	err := e.reconcile(ctx)
	if err != nil {
		e.log.Error("sync pass failed", "error", err)
		e.setState(StateError)
	} else {
		e.mu.Lock()
		e.state = StateSuccess
		e.lastSync = time.Now()
		e.mu.Unlock()
	}

	time.AfterFunc(e.ResetDelay, func() {
		e.mu.Lock()
		if e.state == StateSuccess {
			e.state = StateIdle
		}
		e.mu.Unlock()
	})
	return err
}

// deckRow and cardRow are the remote table shapes. The remote side keeps an
// explicit deck_id reference where the local side owns cards by containment.
type deckRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type cardRow struct {
	ID        string `json:"id"`
	DeckID    string `json:"deck_id"`
	Front     string `json:"front"`
	Back      string `json:"back"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// reconcile is one full pass: every local deck and card is inserted or
// updated remotely. Any failure aborts the remainder of the pass; the next
// trigger starts over from a fresh remote snapshot. No retry, no rollback.
func (e *Engine) reconcile(ctx context.Context) error {
	collection, ok, err := e.local.Load()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var remoteDecks []deckRow
	if err := e.remote.Select(ctx, "decks", remote.All, &remoteDecks); err != nil {
		return err
	}
	knownDecks := make(map[string]deckRow, len(remoteDecks))
	for _, row := range remoteDecks {
		knownDecks[row.ID] = row
	}

	now := time.Now().UTC().Format(time.RFC3339)
	var inserted, updated int

	for _, deck := range collection {
		if _, exists := knownDecks[deck.ID]; exists {
			patch := map[string]any{"name": deck.Name, "updated_at": now}
			if err := e.remote.Update(ctx, "decks", remote.Eq("id", deck.ID), patch, nil); err != nil {
				return err
			}
			updated++
		} else {
			row := deckRow{
				ID:        deck.ID,
				Name:      deck.Name,
				CreatedAt: deck.CreatedAt.UTC().Format(time.RFC3339),
				UpdatedAt: now,
			}
			if err := e.remote.Insert(ctx, "decks", row, nil); err != nil {
				return err
			}
			inserted++
		}

		var remoteCards []cardRow
		if err := e.remote.Select(ctx, "cards", remote.Eq("deck_id", deck.ID), &remoteCards); err != nil {
			return err
		}
		knownCards := make(map[string]cardRow, len(remoteCards))
		for _, row := range remoteCards {
			knownCards[row.ID] = row
		}

		for _, card := range deck.Cards {
			if _, exists := knownCards[card.ID]; exists {
				patch := map[string]any{
					"front":      card.Front,
					"back":       card.Back,
					"status":     string(card.Status),
					"updated_at": now,
				}
				if err := e.remote.Update(ctx, "cards", remote.Eq("id", card.ID), patch, nil); err != nil {
					return err
				}
				updated++
			} else {
				row := cardRow{
					ID:        card.ID,
					DeckID:    deck.ID,
					Front:     card.Front,
					Back:      card.Back,
					Status:    string(card.Status),
					CreatedAt: card.CreatedAt.UTC().Format(time.RFC3339),
					UpdatedAt: now,
				}
				if err := e.remote.Insert(ctx, "cards", row, nil); err != nil {
					return err
				}
				inserted++
			}
		}
	}

	e.log.Info("sync pass complete", "decks", len(collection), "inserted", inserted, "updated", updated)
	return nil
}

// Bootstrap fetches the full remote collection for first-run seeding. A
// transport failure returns an error immediately; callers fall back to an
// empty collection rather than blocking.
func (e *Engine) Bootstrap(ctx context.Context) (domain.Collection, error) {
	var remoteDecks []deckRow
	if err := e.remote.Select(ctx, "decks", remote.All, &remoteDecks); err != nil {
		return nil, err
	}

	collection := make(domain.Collection, 0, len(remoteDecks))
	for _, row := range remoteDecks {
		var remoteCards []cardRow
		if err := e.remote.Select(ctx, "cards", remote.Eq("deck_id", row.ID), &remoteCards); err != nil {
			return nil, err
		}

		deck := domain.Deck{
			ID:        row.ID,
			Name:      row.Name,
			CreatedAt: parseTime(row.CreatedAt),
			Cards:     make([]domain.Card, 0, len(remoteCards)),
		}
		for _, cr := range remoteCards {
			deck.Cards = append(deck.Cards, domain.Card{
				ID:        cr.ID,
				Front:     cr.Front,
				Back:      cr.Back,
				Status:    domain.Status(cr.Status),
				CreatedAt: parseTime(cr.CreatedAt),
			})
		}
		collection = append(collection, deck)
	}
	return collection.Normalize(), nil
}

// PushDeckDelete asynchronously deletes a deck and its cards from the remote
// store. Best-effort: failures are logged and forgotten, leaving remote
// orphans for the accepted no-tombstone limitation.
func (e *Engine) PushDeckDelete(deckID string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx := context.Background()
		if err := e.remote.Delete(ctx, "cards", remote.Eq("deck_id", deckID)); err != nil {
			e.log.Warn("failed to delete remote cards", "deck_id", deckID, "error", err)
			return
		}
		if err := e.remote.Delete(ctx, "decks", remote.Eq("id", deckID)); err != nil {
			e.log.Warn("failed to delete remote deck", "deck_id", deckID, "error", err)
		}
	}()
}

// PushCardDelete asynchronously deletes one card from the remote store.
func (e *Engine) PushCardDelete(cardID string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.remote.Delete(context.Background(), "cards", remote.Eq("id", cardID)); err != nil {
			e.log.Warn("failed to delete remote card", "card_id", cardID, "error", err)
		}
	}()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
