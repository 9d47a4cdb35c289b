// Package localstore persists the whole deck collection as one serialized
// blob in a sqlite database. It is the authoritative store: reads never
// involve the network, and a failed remote replication never affects it.
package localstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/conorfennell/decksync/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// storageKey is the fixed key the collection blob lives under. It matches
// the key earlier versions of the tool used, so existing data keeps loading.
const storageKey = "flashcards_data"

// PersistError reports a failed local write. The in-memory snapshot the
// caller holds is still valid but is not guaranteed durable.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("local store %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Store is the sqlite-backed blob store.
//
// OnSave, when set, is invoked after every successful Save. It is a
// fire-and-forget notification hook: Save neither waits on it nor lets it
// change the outcome, so wiring it to a sync trigger cannot block a write.
type Store struct {
	conn   *sql.DB
	OnSave func()
}

// Open creates a new store at the given sqlite DSN and ensures the schema
// is up to date.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{conn: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Load returns the persisted collection. ok is false when nothing has been
// persisted yet, or when the stored blob fails to decode; a corrupt blob is
// treated as absent rather than fatal so the application stays usable. The
// error return is reserved for storage-level failures.
func (s *Store) Load() (domain.Collection, bool, error) {
	var raw string
	err := s.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, storageKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", storageKey, err)
	}

	var collection domain.Collection
	if err := json.Unmarshal([]byte(raw), &collection); err != nil {
		// Corrupt blob reads as absent.
		return nil, false, nil
	}
	return collection.Normalize(), true, nil
}

// Save serializes and writes the collection, then fires the OnSave hook.
// On failure nothing is written and the hook does not fire.
func (s *Store) Save(collection domain.Collection) error {
	raw, err := json.Marshal(collection)
	if err != nil {
		return &PersistError{Op: "encode", Err: err}
	}

	_, err = s.conn.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, storageKey, string(raw))
	if err != nil {
		return &PersistError{Op: "write", Err: err}
	}

	if s.OnSave != nil {
		s.OnSave()
	}
	return nil
}

// Clear removes the persisted collection.
func (s *Store) Clear() error {
	if _, err := s.conn.Exec(`DELETE FROM kv WHERE key = ?`, storageKey); err != nil {
		return &PersistError{Op: "clear", Err: err}
	}
	return nil
}
