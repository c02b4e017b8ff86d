// Package board holds the in-memory state of the open board.
//
// Every operation returns a new []*domain.List and never writes through a
// pointer reachable from its input, so a snapshot handed out earlier stays
// valid. Lists and cards an operation does not touch are shared between the
// old and the new snapshot.
package board

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/conorfennell/studyboard/internal/domain"
	"github.com/conorfennell/studyboard/internal/ident"
	"github.com/go-playground/validator/v10"
)

var (
	ErrUnknownField = errors.New("unknown card field")
	ErrInvalidValue = errors.New("invalid value")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewCard describes a card to be created from the add-card form. An empty
// Difficulty means easy.
type NewCard struct {
	ListID     string            `validate:"required"`
	CourseCode string            `validate:"required"`
	CourseName string            `validate:"required"`
	Material   string
	Difficulty domain.Difficulty `validate:"oneof=easy medium hard expert"`
}

// Move is a drag-and-drop result: the card at SourceIndex in SourceListID
// lands at DestinationIndex in DestinationListID. DestinationIndex is
// relative to the destination sequence after the card has been removed.
type Move struct {
	SourceIndex       int
	DestinationIndex  int
	SourceListID      string
	DestinationListID string
}

// AddCard appends a new card to the end of the list with ID in.ListID. The
// returned card is nil when no list matches; the lists are then returned
// unchanged.
func AddCard(lists []*domain.List, in NewCard, now time.Time) ([]*domain.List, *domain.Card, error) {
	if in.Difficulty == "" {
		in.Difficulty = domain.Easy
	}
	if err := validate.Struct(in); err != nil {
		return lists, nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	i := listIndex(lists, in.ListID)
	if i < 0 {
		return lists, nil, nil
	}

	now = now.UTC()
	card := &domain.Card{
		ID:                  ident.CardID(in.CourseCode, in.CourseName, in.Material),
		Title:               ident.CardTitle(in.CourseCode, in.CourseName),
		SubTitle:            in.Material,
		Difficulty:          in.Difficulty,
		Priority:            domain.DefaultPriority,
		LearningStrategy:    domain.DefaultLearningStrategy,
		CreatedAt:           now,
		ColumnMovementTimes: map[string]time.Time{in.ListID: now},
	}

	out := slices.Clone(lists)
	cards := make([]*domain.Card, 0, len(lists[i].Cards)+1)
	cards = append(cards, lists[i].Cards...)
	out[i] = withCards(lists[i], append(cards, card))
	return out, card, nil
}

// UpdateCardField sets one field on every card with the given ID. When no
// card matches, the input is returned as is.
func UpdateCardField(lists []*domain.List, cardID string, field Field, value any) ([]*domain.List, error) {
	set, err := field.setter(value)
	if err != nil {
		return lists, err
	}
	out, _ := mapCard(lists, cardID, set)
	return out, nil
}

// MoveCard applies m. It reports false, and returns lists unchanged, when
// either list is unknown or the source index is out of range. A move to a
// different list stamps the destination in the card's column movement
// times; a reorder within one list does not.
func MoveCard(lists []*domain.List, m Move, now time.Time) ([]*domain.List, bool) {
	si := listIndex(lists, m.SourceListID)
	di := listIndex(lists, m.DestinationListID)
	if si < 0 || di < 0 {
		return lists, false
	}
	src := lists[si]
	if m.SourceIndex < 0 || m.SourceIndex >= len(src.Cards) {
		return lists, false
	}

	card := src.Cards[m.SourceIndex]
	remaining := slices.Delete(slices.Clone(src.Cards), m.SourceIndex, m.SourceIndex+1)

	out := slices.Clone(lists)
	if si == di {
		out[si] = withCards(src, insertAt(remaining, m.DestinationIndex, card))
		return out, true
	}

	moved := card.Clone()
	if moved.ColumnMovementTimes == nil {
		moved.ColumnMovementTimes = make(map[string]time.Time, 1)
	}
	moved.ColumnMovementTimes[m.DestinationListID] = now.UTC()

	dst := lists[di]
	out[si] = withCards(src, remaining)
	out[di] = withCards(dst, insertAt(slices.Clone(dst.Cards), m.DestinationIndex, moved))
	return out, true
}

// SetArchived archives or restores a card. The card stays in its list.
func SetArchived(lists []*domain.List, cardID string, archived bool) []*domain.List {
	out, _ := mapCard(lists, cardID, func(c *domain.Card) { c.Archived = archived })
	return out
}

// MarkDeleted soft-deletes a card. The card stays in its list.
func MarkDeleted(lists []*domain.List, cardID string) []*domain.List {
	out, _ := mapCard(lists, cardID, func(c *domain.Card) { c.Deleted = true })
	return out
}

// SetAddingCard opens or closes the add-card form of a list.
func SetAddingCard(lists []*domain.List, listID string, adding bool) []*domain.List {
	i := listIndex(lists, listID)
	if i < 0 || lists[i].AddingCard == adding {
		return lists
	}
	out := slices.Clone(lists)
	cp := *lists[i]
	cp.AddingCard = adding
	out[i] = &cp
	return out
}

// FindCard returns the first card with the given ID and the list holding
// it.
func FindCard(lists []*domain.List, cardID string) (*domain.List, *domain.Card, bool) {
	for _, l := range lists {
		for _, c := range l.Cards {
			if c.ID == cardID {
				return l, c, true
			}
		}
	}
	return nil, nil, false
}

func listIndex(lists []*domain.List, id string) int {
	return slices.IndexFunc(lists, func(l *domain.List) bool { return l.ID == id })
}

func withCards(l *domain.List, cards []*domain.Card) *domain.List {
	cp := *l
	cp.Cards = cards
	return &cp
}

// insertAt inserts c at i, clamping i to the bounds of cards.
func insertAt(cards []*domain.Card, i int, c *domain.Card) []*domain.Card {
	i = max(0, min(i, len(cards)))
	return slices.Insert(cards, i, c)
}

// mapCard applies fn to a copy of every card with the given ID. Only lists
// holding a match are rebuilt.
func mapCard(lists []*domain.List, cardID string, fn func(*domain.Card)) ([]*domain.List, bool) {
	var out []*domain.List
	for i, l := range lists {
		var cards []*domain.Card
		for j, c := range l.Cards {
			if c.ID != cardID {
				continue
			}
			if cards == nil {
				cards = slices.Clone(l.Cards)
			}
			cp := c.Clone()
			fn(cp)
			cards[j] = cp
		}
		if cards == nil {
			continue
		}
		if out == nil {
			out = slices.Clone(lists)
		}
		out[i] = withCards(l, cards)
	}
	if out == nil {
		return lists, false
	}
	return out, true
}
