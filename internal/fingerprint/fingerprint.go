package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/decksync/internal/domain"
)

// Normalize flattens a card's text content into a canonical form. It trims
// whitespace, lowercases, and normalizes line endings for each side before
// joining them, so cosmetic edits do not change a card's identity.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	// Joined with a newline so "front" and "back" cannot run together
	// into the same token.
	return strings.Join([]string{normalizePart(card.Front), normalizePart(card.Back)}, "\n")
}

// Hash returns the SHA-256 of the normalized card content as a hex string.
// Import dedup uses it to recognise a card it has already seen.
func Hash(card domain.Card) string {
	normalized := Normalize(card)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(normalized)))
}
