package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conorfennell/studyboard/internal/domain"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name            string
		input           string
		expectedEntries int
		expected        Entry
	}{
		{
			name:            "Code, course and material",
			input:           "Code: CS101\nCourse: Algorithms\nMaterial: Week 1",
			expectedEntries: 1,
			expected:        Entry{CourseCode: "CS101", CourseName: "Algorithms", Material: "Week 1"},
		},
		{
			name:            "Difficulty is lower-cased",
			input:           "Code: CS101\nCourse: Algorithms\nDifficulty: Hard",
			expectedEntries: 1,
			expected:        Entry{CourseCode: "CS101", CourseName: "Algorithms", Difficulty: domain.Hard},
		},
		{
			name: "Multiline notes",
			input: `
Code: PH100
Course: Physics
Notes: Read chapter 2
and do the exercises.
`,
			expectedEntries: 1,
			expected:        Entry{CourseCode: "PH100", CourseName: "Physics", Notes: "Read chapter 2\nand do the exercises."},
		},
		{
			name: "Continuation lines after single-line fields are ignored",
			input: `
Code: PH100
Course: Physics
stray text
`,
			expectedEntries: 1,
			expected:        Entry{CourseCode: "PH100", CourseName: "Physics"},
		},
		{
			name: "Two entries split by a new code",
			input: `
Code: CS101
Course: Algorithms

Code: CS102
Course: Data Structures
`,
			expectedEntries: 2,
		},
		{
			name: "Two entries split by a separator",
			input: `
Code: CS101
Course: Algorithms
---
Course: Data Structures
Code: CS102
`,
			expectedEntries: 2,
		},
		{
			name:            "No entries, just text",
			input:           "This is a file with no cards.",
			expectedEntries: 0,
		},
		{
			name:            "Entry without a code is dropped",
			input:           "Course: Algorithms\nMaterial: Week 1",
			expectedEntries: 0,
		},
		{
			name:            "Prefixes with no space",
			input:           "Code:CS101\nCourse:Algorithms",
			expectedEntries: 1,
			expected:        Entry{CourseCode: "CS101", CourseName: "Algorithms"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(entries) != tc.expectedEntries {
				t.Fatalf("Expected %d entries, but got %d", tc.expectedEntries, len(entries))
			}

			if tc.expectedEntries == 1 && entries[0] != tc.expected {
				t.Errorf("Expected %+v, but got %+v", tc.expected, entries[0])
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.md")
	if err := os.WriteFile(path, []byte("Code: CS101\nCourse: Algorithms\nMaterial: Week 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	entries, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, but got %d", len(entries))
	}
	nc := entries[0].NewCard("list1")
	if nc.ListID != "list1" || nc.CourseCode != "CS101" || nc.Material != "Week 1" {
		t.Errorf("Expected a CS101 card for list1, but got %+v", nc)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}
