package parser

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name            string
		input           string
		expectedEntries int
		expectedFront   string
		expectedBack    string
	}{
		{
			name:            "Simple Q&A",
			input:           "Q: What is the capital of France?\nA: Paris",
			expectedEntries: 1,
			expectedFront:   "What is the capital of France?",
			expectedBack:    "Paris",
		},
		{
			name: "Multiline Back",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedEntries: 1,
			expectedFront:   "What are the primary colors?",
			expectedBack:    "Red\nBlue\nYellow",
		},
		{
			name: "Two Cards Split By Separator",
			input: `
Q: First question
A: First answer
---
Q: Second question
A: Second answer
`,
			expectedEntries: 2,
		},
		{
			name: "New Question Ends Previous Card",
			input: `
Q: First question
A: First answer
Q: Second question
A: Second answer
`,
			expectedEntries: 2,
		},
		{
			name:            "No cards, just text",
			input:           "This is a file with no questions.",
			expectedEntries: 0,
		},
		{
			name:            "Back without a front is dropped",
			input:           "A: orphaned answer",
			expectedEntries: 0,
		},
		{
			name:            "Prefixes with no space",
			input:           "Q:Question\nA:Answer",
			expectedEntries: 1,
			expectedFront:   "Question",
			expectedBack:    "Answer",
		},
		{
			name:            "Markdown survives in card text",
			input:           "Q: What does `len` do?\nA: **Returns** the length",
			expectedEntries: 1,
			expectedFront:   "What does `len` do?",
			expectedBack:    "**Returns** the length",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := strings.NewReader(tc.input)
			entries, err := Parse(r)
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(entries) != tc.expectedEntries {
				t.Fatalf("Expected %d entries, but got %d", tc.expectedEntries, len(entries))
			}

			if tc.expectedEntries == 1 {
				entry := entries[0]
				if entry.Front != tc.expectedFront {
					t.Errorf("Expected Front to be '%s', but got '%s'", tc.expectedFront, entry.Front)
				}
				if entry.Back != tc.expectedBack {
					t.Errorf("Expected Back to be '%s', but got '%s'", tc.expectedBack, entry.Back)
				}
			}
		})
	}
}
