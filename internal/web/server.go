// Package web is the thin view layer over the domain API: an HTMX-style
// fragment server. It holds no state of its own; every page is rendered
// from the store and card content passes through the markdown renderer.
package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/conorfennell/decksync/internal/domain"
	"github.com/conorfennell/decksync/internal/markdown"
	"github.com/conorfennell/decksync/internal/store"
	"github.com/conorfennell/decksync/internal/study"
	"github.com/conorfennell/decksync/internal/syncer"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

// Server holds the dependencies for the HTTP server.
type Server struct {
	mgr       *store.Manager
	router    *http.ServeMux
	templates *template.Template
}

// NewServer creates and configures a new server.
func NewServer(mgr *store.Manager) *Server {
	tpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	s := &Server{
		mgr:       mgr,
		router:    http.NewServeMux(),
		templates: tpl,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatalf("Failed to create sub-filesystem for static assets: %v", err)
	}
	s.router.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.HandleFunc("/", s.handleIndex())
	s.router.HandleFunc("/decks", s.handlePostDeck())
	s.router.HandleFunc("/decks/", s.handleDeck())
	s.router.HandleFunc("/study/", s.handleStudy())
	s.router.HandleFunc("/stats/", s.handleStats())
	s.router.HandleFunc("/sync", s.handlePostSync())
	s.router.HandleFunc("/sync/status", s.handleSyncStatus())
	s.router.HandleFunc("/export", s.handleExport())
	s.router.HandleFunc("/import", s.handleImport())
}

type deckView struct {
	domain.Deck
	Stats   domain.Stats
	Preview string
}

func (s *Server) deckViews() []deckView {
	decks := s.mgr.Decks()
	views := make([]deckView, 0, len(decks))
	for _, d := range decks {
		preview := ""
		if len(d.Cards) > 0 {
			preview = markdown.StripToPlainText(d.Cards[0].Front)
		}
		views = append(views, deckView{Deck: d, Stats: d.Stats(), Preview: preview})
	}
	return views
}

// handleIndex renders the deck list page.
func (s *Server) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		s.render(w, "index", map[string]interface{}{
			"Decks": s.deckViews(),
		})
	}
}

// handlePostDeck creates a deck and re-renders the deck list fragment.
func (s *Server) handlePostDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name := strings.TrimSpace(r.PostFormValue("name"))
		if name == "" {
			http.Error(w, "Deck name cannot be empty", http.StatusBadRequest)
			return
		}
		if _, err := s.mgr.CreateDeck(name); err != nil {
			log.Printf("Error creating deck: %v", err)
			http.Error(w, "Failed to create deck", http.StatusInternalServerError)
			return
		}
		s.renderDeckList(w)
	}
}

// handleDeck dispatches /decks/{id}[/...] requests: rename and delete for
// the deck itself, plus the nested card operations.
func (s *Server) handleDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/decks/"), "/")
		deckID := parts[0]
		if deckID == "" {
			http.NotFound(w, r)
			return
		}

		switch {
		case len(parts) == 1 && r.Method == http.MethodDelete:
			if err := s.mgr.DeleteDeck(deckID); err != nil {
				log.Printf("Error deleting deck %s: %v", deckID, err)
				http.Error(w, "Failed to delete deck", http.StatusInternalServerError)
				return
			}
			s.renderDeckList(w)
		case len(parts) == 2 && parts[1] == "name" && r.Method == http.MethodPost:
			name := strings.TrimSpace(r.PostFormValue("name"))
			if name == "" {
				http.Error(w, "Deck name cannot be empty", http.StatusBadRequest)
				return
			}
			if err := s.mgr.UpdateDeckName(deckID, name); err != nil {
				http.Error(w, "Failed to rename deck", http.StatusInternalServerError)
				return
			}
			s.renderDeckList(w)
		case len(parts) >= 2 && parts[1] == "cards":
			s.handleCards(w, r, deckID, parts[2:])
		default:
			http.NotFound(w, r)
		}
	}
}

// handleCards covers add, edit, delete, and status updates for cards.
func (s *Server) handleCards(w http.ResponseWriter, r *http.Request, deckID string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		card, err := s.mgr.AddCard(deckID, r.PostFormValue("front"), r.PostFormValue("back"))
		if err != nil {
			http.Error(w, "Failed to add card", http.StatusInternalServerError)
			return
		}
		if card == nil {
			http.NotFound(w, r)
			return
		}
		s.renderStats(w, deckID)
	case len(rest) == 1 && r.Method == http.MethodPost:
		if err := s.mgr.UpdateCard(deckID, rest[0], r.PostFormValue("front"), r.PostFormValue("back")); err != nil {
			http.Error(w, "Failed to update card", http.StatusInternalServerError)
			return
		}
		s.renderStats(w, deckID)
	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.mgr.DeleteCard(deckID, rest[0]); err != nil {
			http.Error(w, "Failed to delete card", http.StatusInternalServerError)
			return
		}
		s.renderStats(w, deckID)
	case len(rest) == 2 && rest[1] == "status" && r.Method == http.MethodPost:
		status := domain.Status(r.PostFormValue("status"))
		if err := s.mgr.UpdateCardStatus(deckID, rest[0], status); err != nil {
			http.Error(w, "Invalid status", http.StatusBadRequest)
			return
		}
		s.renderStats(w, deckID)
	default:
		http.NotFound(w, r)
	}
}

// handleStudy renders one card of a study session. Position, visible side,
// and shuffle seed live in the query string so the session itself stays
// stateless on the server.
func (s *Server) handleStudy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID := strings.TrimPrefix(r.URL.Path, "/study/")
		deck := s.mgr.Deck(deckID)
		if deck == nil {
			http.NotFound(w, r)
			return
		}

		session := study.New(deck.Cards)
		seed, hasSeed := int64(0), false
		if v := r.URL.Query().Get("seed"); v != "" {
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				seed, hasSeed = parsed, true
				session.Shuffle(seed)
			}
		}
		index, _ := strconv.Atoi(r.URL.Query().Get("i"))
		session.Seek(index)

		side := r.URL.Query().Get("side")
		if side != "back" {
			side = "front"
		}

		data := map[string]interface{}{
			"Deck":    deck,
			"Stats":   deck.Stats(),
			"Side":    side,
			"HasSeed": hasSeed,
			"Seed":    seed,
			"Index":   session.Index(),
			"Counter": session.Counter(),
		}
		pos, total, percent := session.Progress()
		data["Pos"], data["Total"], data["Percent"] = pos, total, percent

		if card := session.Current(); card != nil {
			text := card.Front
			if side == "back" {
				text = card.Back
			}
			data["Card"] = card
			data["CardHTML"] = template.HTML(markdown.Render(text))
		}

		s.render(w, "study", data)
	}
}

// handleStats renders the per-deck stats fragment.
func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID := strings.TrimPrefix(r.URL.Path, "/stats/")
		s.renderStats(w, deckID)
	}
}

// handlePostSync triggers a manual sync pass.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if eng := s.mgr.Engine(); eng != nil {
			eng.Trigger()
		}
		s.renderSyncStatus(w)
	}
}

// handleSyncStatus renders the sync indicator fragment.
func (s *Server) handleSyncStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderSyncStatus(w)
	}
}

// handleExport serves the collection as a downloadable JSON file.
func (s *Server) handleExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.mgr.ExportData()
		if err != nil {
			http.Error(w, "Failed to export", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="flashcards.json"`)
		io.WriteString(w, data)
	}
}

// handleImport replaces the collection from an uploaded JSON export.
func (s *Server) handleImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
		payload := r.PostFormValue("payload")
		if payload == "" {
			http.Error(w, "Missing import payload", http.StatusBadRequest)
			return
		}
		if !s.mgr.ImportData(payload) {
			http.Error(w, "Invalid import payload", http.StatusBadRequest)
			return
		}
		s.renderDeckList(w)
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
	}
}

func (s *Server) renderDeckList(w http.ResponseWriter) {
	s.render(w, "deck_list", map[string]interface{}{"Decks": s.deckViews()})
}

func (s *Server) renderStats(w http.ResponseWriter, deckID string) {
	s.render(w, "stats", s.mgr.Stats(deckID))
}

func (s *Server) renderSyncStatus(w http.ResponseWriter) {
	state := syncer.StateIdle
	enabled := false
	if eng := s.mgr.Engine(); eng != nil {
		state = eng.State()
		enabled = true
	}
	s.render(w, "sync_status", map[string]interface{}{
		"Enabled": enabled,
		"State":   state,
	})
}
