// Package importer loads decks from markdown files into the store. One file
// becomes one deck named after the file stem; re-importing the same source
// is safe because cards are deduped by content fingerprint.
package importer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/conorfennell/decksync/internal/domain"
	"github.com/conorfennell/decksync/internal/fingerprint"
	"github.com/conorfennell/decksync/internal/gitsource"
	"github.com/conorfennell/decksync/internal/parser"
	"github.com/conorfennell/decksync/internal/store"
)

// Result reports what one import run did.
type Result struct {
	Files   int // markdown files that yielded at least one card
	Decks   int // decks created
	Cards   int // cards added
	Skipped int // cards skipped as already present
	Errors  []error
}

// IsGitSource reports whether a source string looks like a git URL rather
// than a local directory.
func IsGitSource(source string) bool {
	return strings.HasSuffix(source, ".git") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasPrefix(source, "https://") ||
		strings.HasPrefix(source, "http://")
}

// Dir walks dir for .md files and merges their cards into the store.
// Per-file parse failures are collected, not fatal.
func Dir(mgr *store.Manager, dir string) (Result, error) {
	var res Result

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		entries, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			res.Errors = append(res.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		if len(entries) == 0 {
			return nil
		}
		res.Files++

		name := deckName(d.Name())
		deck := findDeckByName(mgr, name)
		if deck == nil {
			created, createErr := mgr.CreateDeck(name)
			if createErr != nil {
				res.Errors = append(res.Errors, fmt.Errorf("creating deck %s: %w", name, createErr))
				return nil
			}
			deck = created
			res.Decks++
		}

		seen := make(map[string]bool, len(deck.Cards))
		for _, card := range deck.Cards {
			seen[fingerprint.Hash(card)] = true
		}

		for _, entry := range entries {
			hash := fingerprint.Hash(domain.Card{Front: entry.Front, Back: entry.Back})
			if seen[hash] {
				res.Skipped++
				continue
			}
			if _, addErr := mgr.AddCard(deck.ID, entry.Front, entry.Back); addErr != nil {
				res.Errors = append(res.Errors, fmt.Errorf("adding card to %s: %w", name, addErr))
				continue
			}
			seen[hash] = true
			res.Cards++
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("walking %s: %w", dir, err)
	}

	slog.Info("import complete",
		"dir", dir,
		"files", res.Files,
		"decks_created", res.Decks,
		"cards_added", res.Cards,
		"cards_skipped", res.Skipped,
		"errors", len(res.Errors),
	)
	return res, nil
}

// Git syncs a deck repository into cacheDir and imports its files.
func Git(mgr *store.Manager, repoURL, cacheDir string) (Result, error) {
	localPath, err := localPathFor(cacheDir, repoURL)
	if err != nil {
		return Result{}, err
	}
	if err := gitsource.Sync(repoURL, localPath); err != nil {
		return Result{}, err
	}
	return Dir(mgr, localPath)
}

func deckName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

func findDeckByName(mgr *store.Manager, name string) *domain.Deck {
	decks := mgr.Decks()
	for i := range decks {
		if decks[i].Name == name {
			return &decks[i]
		}
	}
	return nil
}

// localPathFor maps a repository URL to a stable checkout path under
// baseDir, handling both https URLs and scp-style ssh addresses.
func localPathFor(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		return filepath.Join(baseDir, parsed.Host, strings.TrimSuffix(parsed.Path, ".git")), nil
	}

	// scp-style: git@host:user/repo.git
	if strings.Contains(repoURL, "@") {
		parts := strings.SplitN(repoURL, ":", 2)
		if len(parts) == 2 {
			hostAndUser := strings.SplitN(parts[0], "@", 2)
			if len(hostAndUser) == 2 {
				return filepath.Join(baseDir, hostAndUser[1], strings.TrimSuffix(parts[1], ".git")), nil
			}
		}
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
