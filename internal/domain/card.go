package domain

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// Difficulty is the self-assessed effort level of a card.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
	Expert Difficulty = "expert"
)

// Difficulties lists the accepted difficulty values in display order.
var Difficulties = []Difficulty{Easy, Medium, Hard, Expert}

const (
	DefaultPriority         = "medium"
	DefaultLearningStrategy = "Select a Learning Strategy"
)

// Card is a unit of study material on a board. The JSON layout matches the
// document the backend stores, so a fetched board can be pushed back whole.
type Card struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	SubTitle         string     `json:"sub_title"`
	Description      string     `json:"description"`
	Difficulty       Difficulty `json:"difficulty"`
	Priority         string     `json:"priority"`
	LearningStrategy string     `json:"learning_strategy"`

	// Checklists is kept opaque; the board only carries it between the
	// backend and whoever edits it.
	Checklists json.RawMessage `json:"checklists,omitempty"`
	Rating     *float64        `json:"rating,omitempty"`
	Notes      string          `json:"notes,omitempty"`

	PreTestGrade  string `json:"pre_test_grade,omitempty"`
	PostTestGrade string `json:"post_test_grade,omitempty"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	// ColumnMovementTimes records when the card entered each list, keyed by
	// list ID.
	ColumnMovementTimes map[string]time.Time `json:"column_movement_times,omitempty"`

	Archived bool `json:"archived,omitempty"`
	Deleted  bool `json:"deleted,omitempty"`
}

// Visible reports whether the card should be shown on the board.
func (c *Card) Visible() bool {
	return !c.Archived && !c.Deleted
}

// Clone returns a deep copy of the card.
func (c *Card) Clone() *Card {
	cp := *c
	cp.Checklists = slices.Clone(c.Checklists)
	if c.Rating != nil {
		r := *c.Rating
		cp.Rating = &r
	}
	cp.ColumnMovementTimes = maps.Clone(c.ColumnMovementTimes)
	return &cp
}
