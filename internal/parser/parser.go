// Package parser extracts flashcard entries from markdown deck files.
//
// A file is a sequence of cards. "Q:" starts a card's front, "A:" its back,
// a line of "---" ends the card, and any other line continues the block
// being read. A new "Q:" also ends the previous card. Cards without a front
// are dropped.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Entry is one parsed card: markdown source for both sides.
type Entry struct {
	Front string
	Back  string
}

const (
	frontPrefix = "Q:"
	backPrefix  = "A:"
)

type state int

const (
	seeking state = iota
	readingFront
	readingBack
)

// ParseFile reads a deck file from the given path and extracts all entries.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all entries.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	var current Entry
	var block []string
	currentState := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch currentState {
		case readingFront:
			current.Front = content
		case readingBack:
			current.Back = content
		}
		block = nil
	}

	finishEntry := func() {
		flushBlock()
		if current.Front != "" {
			entries = append(entries, current)
		}
		current = Entry{}
		currentState = seeking
	}

	startBlock := func(line, prefix string, next state) {
		flushBlock()
		currentState = next
		content := line[len(prefix):]
		if strings.HasPrefix(content, " ") {
			content = content[1:]
		}
		block = append(block, content)
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishEntry()
			continue
		}

		switch {
		case strings.HasPrefix(line, frontPrefix):
			if currentState != seeking {
				// A new question always starts a new card.
				finishEntry()
			}
			startBlock(line, frontPrefix, readingFront)
		case strings.HasPrefix(line, backPrefix):
			startBlock(line, backPrefix, readingBack)
		default:
			if currentState != seeking {
				block = append(block, line)
			}
		}
	}

	finishEntry()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
