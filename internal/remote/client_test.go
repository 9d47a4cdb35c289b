package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEqFilterEscapesValue(t *testing.T) {
	got := Eq("deck_id", "deck-1")
	if got != Filter("?deck_id=eq.deck-1") {
		t.Errorf("unexpected filter: %q", got)
	}
	if got := Eq("name", "a b"); got != Filter("?name=eq.a+b") {
		t.Errorf("value not escaped: %q", got)
	}
}

func TestSelectSendsAuthHeaders(t *testing.T) {
	var gotAuth, gotPrefer, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPrefer = r.Header.Get("Prefer")
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.Write([]byte(`[{"id":"deck-1"}]`))
	}))
	defer server.Close()

	c := New(server.URL, "secret")
	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.Select(context.Background(), "decks", Eq("id", "deck-1"), &rows); err != nil {
		t.Fatalf("Select: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPrefer != "return=representation" {
		t.Errorf("Prefer = %q", gotPrefer)
	}
	if gotPath != "/rest/v1/decks?id=eq.deck-1" {
		t.Errorf("path = %q", gotPath)
	}
	if len(rows) != 1 || rows[0].ID != "deck-1" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestInsertUnwrapsArrayResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		w.Write([]byte(`[{"id":"card-1","front":"f"}]`))
	}))
	defer server.Close()

	c := New(server.URL, "k")
	var row struct {
		ID    string `json:"id"`
		Front string `json:"front"`
	}
	if err := c.Insert(context.Background(), "cards", map[string]string{"front": "f"}, &row); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if row.ID != "card-1" || row.Front != "f" {
		t.Errorf("row = %+v", row)
	}
}

func TestNon2xxSurfacesServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"duplicate key"}`))
	}))
	defer server.Close()

	c := New(server.URL, "k")
	err := c.Insert(context.Background(), "decks", map[string]string{"id": "x"}, nil)

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if te.Status != http.StatusConflict || te.Message != "duplicate key" {
		t.Errorf("unexpected error detail: %+v", te)
	}
}

func TestDeleteHandlesNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := New(server.URL, "k")
	if err := c.Delete(context.Background(), "decks", Eq("id", "deck-1")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestNetworkFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	c := New(server.URL, "k")
	err := c.Select(context.Background(), "decks", All, &[]struct{}{})

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if te.Status != 0 {
		t.Errorf("expected Status 0 for a network failure, got %d", te.Status)
	}
}
