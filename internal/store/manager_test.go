package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/conorfennell/decksync/internal/domain"
	"github.com/conorfennell/decksync/internal/localstore"
	"github.com/conorfennell/decksync/internal/remote"
	"github.com/conorfennell/decksync/internal/syncer"
)

func newLocalOnly(t *testing.T) *Manager {
	t.Helper()
	local, err := localstore.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { local.Close() })
	return New(local, nil, nil)
}

func TestCreateDeckRoundTrip(t *testing.T) {
	m := newLocalOnly(t)

	deck, err := m.CreateDeck("Spanish")
	if err != nil {
		t.Fatalf("CreateDeck: %v", err)
	}

	got := m.Deck(deck.ID)
	if got == nil {
		t.Fatal("created deck not found")
	}
	if got.Name != "Spanish" {
		t.Errorf("name = %q, want Spanish", got.Name)
	}
	if len(got.Cards) != 0 {
		t.Errorf("new deck should have no cards, got %d", len(got.Cards))
	}
}

func TestDeleteDeckCascades(t *testing.T) {
	m := newLocalOnly(t)

	deck, _ := m.CreateDeck("doomed")
	if _, err := m.AddCard(deck.ID, "f", "b"); err != nil {
		t.Fatalf("AddCard: %v", err)
	}

	if err := m.DeleteDeck(deck.ID); err != nil {
		t.Fatalf("DeleteDeck: %v", err)
	}

	if m.Deck(deck.ID) != nil {
		t.Error("deck still present after delete")
	}
	if cards := m.Cards(deck.ID); len(cards) != 0 {
		t.Errorf("cards survived deck deletion: %+v", cards)
	}
	if decks := m.Decks(); len(decks) != 0 {
		t.Errorf("deck list not empty: %+v", decks)
	}
}

func TestAddCardToUnknownDeck(t *testing.T) {
	m := newLocalOnly(t)
	card, err := m.AddCard("deck-missing", "f", "b")
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if card != nil {
		t.Errorf("expected nil card for unknown deck, got %+v", card)
	}
}

func TestUpdateCardStatusIdempotent(t *testing.T) {
	m := newLocalOnly(t)
	deck, _ := m.CreateDeck("d")
	card, _ := m.AddCard(deck.ID, "f", "b")

	if err := m.UpdateCardStatus(deck.ID, card.ID, domain.StatusKnown); err != nil {
		t.Fatalf("UpdateCardStatus: %v", err)
	}
	first := m.Stats(deck.ID)

	if err := m.UpdateCardStatus(deck.ID, card.ID, domain.StatusKnown); err != nil {
		t.Fatalf("UpdateCardStatus (second): %v", err)
	}
	second := m.Stats(deck.ID)

	if first != second {
		t.Errorf("stats changed on repeated status update: %+v vs %+v", first, second)
	}
	if second.Known != 1 || second.Total != 1 {
		t.Errorf("unexpected stats: %+v", second)
	}
}

func TestUpdateCardStatusRejectsUnknownValue(t *testing.T) {
	m := newLocalOnly(t)
	deck, _ := m.CreateDeck("d")
	card, _ := m.AddCard(deck.ID, "f", "b")

	err := m.UpdateCardStatus(deck.ID, card.ID, domain.Status("mastered"))
	if _, ok := err.(*ValidationError); !ok {
		t.Errorf("expected *ValidationError, got %v", err)
	}
}

func TestUpdateCard(t *testing.T) {
	m := newLocalOnly(t)
	deck, _ := m.CreateDeck("d")
	card, _ := m.AddCard(deck.ID, "old front", "old back")

	if err := m.UpdateCard(deck.ID, card.ID, "new front", "new back"); err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	got := m.Card(deck.ID, card.ID)
	if got.Front != "new front" || got.Back != "new back" {
		t.Errorf("card not updated: %+v", got)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	m := newLocalOnly(t)
	d1, _ := m.CreateDeck("first")
	d2, _ := m.CreateDeck("second")
	m.AddCard(d1.ID, "q1", "a1")
	m.AddCard(d1.ID, "q2", "a2")
	m.AddCard(d2.ID, "q3", "a3")
	m.UpdateCardStatus(d1.ID, m.Cards(d1.ID)[0].ID, domain.StatusReview)

	exported, err := m.ExportData()
	if err != nil {
		t.Fatalf("ExportData: %v", err)
	}

	if err := m.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if !m.ImportData(exported) {
		t.Fatal("ImportData rejected its own export")
	}

	decks := m.Decks()
	if len(decks) != 2 || decks[0].Name != "first" || decks[1].Name != "second" {
		t.Fatalf("order or content lost: %+v", decks)
	}
	if len(decks[0].Cards) != 2 || decks[0].Cards[0].Status != domain.StatusReview {
		t.Errorf("card fields lost: %+v", decks[0].Cards)
	}
}

func TestImportDataRejectsBadShapes(t *testing.T) {
	m := newLocalOnly(t)
	m.CreateDeck("keep me")

	for _, bad := range []string{
		`{"not":"an array"}`,
		`null`,
		`"string"`,
		`not json at all`,
		`[{"name":"deck without id"}]`,
	} {
		if m.ImportData(bad) {
			t.Errorf("ImportData(%q) accepted invalid payload", bad)
		}
	}

	// Existing state untouched.
	if decks := m.Decks(); len(decks) != 1 || decks[0].Name != "keep me" {
		t.Errorf("failed import mutated state: %+v", decks)
	}
}

func TestClearAll(t *testing.T) {
	m := newLocalOnly(t)
	m.CreateDeck("x")
	if err := m.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if decks := m.Decks(); len(decks) != 0 {
		t.Errorf("expected empty collection, got %+v", decks)
	}
}

// tableServer is a minimal fake of the remote table API that counts
// requests. When gate is non-nil, GET /rest/v1/decks blocks until it is
// closed, holding a sync pass in flight.
type tableServer struct {
	mu    sync.Mutex
	count map[string]int
	gate  chan struct{}
}

func newTableServer(gate chan struct{}) (*tableServer, *httptest.Server) {
	ts := &tableServer{count: map[string]int{}, gate: gate}
	return ts, httptest.NewServer(ts)
}

func (ts *tableServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	if ts.gate != nil && key == "GET /rest/v1/decks" {
		<-ts.gate
	}
	ts.mu.Lock()
	ts.count[key]++
	ts.mu.Unlock()
	w.Write([]byte("[]"))
}

func (ts *tableServer) hits(key string) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.count[key]
}

func newSynced(t *testing.T, serverURL string) *Manager {
	t.Helper()
	local, err := localstore.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	t.Cleanup(func() { local.Close() })
	engine := syncer.New(local, remote.New(serverURL, "test-key"), nil)
	return New(local, engine, nil)
}

func TestRapidSavesCoalesceToOnePass(t *testing.T) {
	gate := make(chan struct{})
	ts, server := newTableServer(gate)
	defer server.Close()

	m := newSynced(t, server.URL)

	// The first save starts a pass which blocks inside the deck select;
	// the second save's trigger must be dropped, not queued.
	if _, err := m.CreateDeck("one"); err != nil {
		t.Fatalf("CreateDeck: %v", err)
	}
	if _, err := m.CreateDeck("two"); err != nil {
		t.Fatalf("CreateDeck: %v", err)
	}

	close(gate)
	m.Engine().Wait()

	if got := ts.hits("GET /rest/v1/decks"); got != 1 {
		t.Errorf("deck selects = %d, want exactly 1 for two rapid saves", got)
	}
}

func TestInitSeedsFromRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/decks":
			w.Write([]byte(`[{"id":"deck-1","name":"Remote deck","created_at":"2024-01-01T00:00:00Z"}]`))
		case "/rest/v1/cards":
			w.Write([]byte(`[{"id":"card-1","deck_id":"deck-1","front":"f","back":"b","status":"known"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	m := newSynced(t, server.URL)
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	m.Engine().Wait()

	decks := m.Decks()
	if len(decks) != 1 || decks[0].Name != "Remote deck" {
		t.Fatalf("expected seeded deck, got %+v", decks)
	}
	if len(decks[0].Cards) != 1 || decks[0].Cards[0].Status != domain.StatusKnown {
		t.Errorf("expected seeded card, got %+v", decks[0].Cards)
	}
}

func TestInitFallsBackToEmptyWhenRemoteDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // unreachable

	m := newSynced(t, server.URL)
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init should not fail when remote is down: %v", err)
	}
	m.Engine().Wait()

	if decks := m.Decks(); len(decks) != 0 {
		t.Errorf("expected empty collection, got %+v", decks)
	}
}
