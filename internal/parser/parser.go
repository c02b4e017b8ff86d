// Package parser reads study plans written as plain-text card blocks:
//
//	Code: CS101
//	Course: Algorithms
//	Material: Week 1 - Sorting
//	Difficulty: hard
//	Notes: Read chapter 2
//	and do the exercises.
//	---
//
// Notes and Description may continue over several lines. A new Code line
// or a "---" separator ends the current entry.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/studyboard/internal/board"
	"github.com/conorfennell/studyboard/internal/domain"
)

// Entry is one card described by a plan file.
type Entry struct {
	CourseCode  string
	CourseName  string
	Material    string
	Difficulty  domain.Difficulty
	Description string
	Notes       string
}

// NewCard converts e into the input of board.AddCard for the given list.
func (e Entry) NewCard(listID string) board.NewCard {
	return board.NewCard{
		ListID:     listID,
		CourseCode: e.CourseCode,
		CourseName: e.CourseName,
		Material:   e.Material,
		Difficulty: e.Difficulty,
	}
}

type state int

const (
	seeking state = iota
	readingCode
	readingCourse
	readingMaterial
	readingDifficulty
	readingDescription
	readingNotes
)

var prefixes = []struct {
	prefix string
	state  state
}{
	{"Code:", readingCode},
	{"Course:", readingCourse},
	{"Material:", readingMaterial},
	{"Difficulty:", readingDifficulty},
	{"Description:", readingDescription},
	{"Notes:", readingNotes},
}

// multiline reports whether continuation lines belong to the field.
func (s state) multiline() bool {
	return s == readingDescription || s == readingNotes
}

// ParseFile reads a plan from the given path.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads every entry from r. Entries without a course code are
// dropped.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	var current Entry
	var block []string
	currentState := seeking

	flush := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch currentState {
		case readingCode:
			current.CourseCode = content
		case readingCourse:
			current.CourseName = content
		case readingMaterial:
			current.Material = content
		case readingDifficulty:
			current.Difficulty = domain.Difficulty(strings.ToLower(content))
		case readingDescription:
			current.Description = content
		case readingNotes:
			current.Notes = content
		}
		block = nil
	}

	finishEntry := func() {
		flush()
		if current.CourseCode != "" {
			entries = append(entries, current)
		}
		current = Entry{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishEntry()
			continue
		}

		matched := false
		for _, p := range prefixes {
			if !strings.HasPrefix(line, p.prefix) {
				continue
			}
			flush()
			if p.state == readingCode && current.CourseCode != "" {
				finishEntry()
			}
			currentState = p.state
			block = append(block, strings.TrimPrefix(line[len(p.prefix):], " "))
			matched = true
			break
		}
		if !matched && currentState.multiline() {
			block = append(block, line)
		}
	}

	finishEntry()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
