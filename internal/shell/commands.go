package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/conorfennell/studyboard/internal/board"
	"github.com/conorfennell/studyboard/internal/domain"
	"github.com/conorfennell/studyboard/internal/grade"
	"github.com/conorfennell/studyboard/internal/parser"
	"github.com/conorfennell/studyboard/internal/render"
	"github.com/conorfennell/studyboard/internal/studytimer"
)

var (
	ErrUnknownCard = errors.New("unknown card")
	ErrUnknownList = errors.New("unknown list")
)

func usage(name string) error {
	return fmt.Errorf("usage: %s", commands[name].usage)
}

func (s *Shell) show() {
	opts := render.Options{All: s.showAll}
	for id, t := range s.timers {
		if t.Running() {
			opts.Running = id
		}
	}
	render.Board(s.out, s.store.Snapshot(), opts)
}

func (s *Shell) handleShow(_ context.Context, args []string) error {
	switch {
	case len(args) == 0:
		s.showAll = false
	case len(args) == 1 && args[0] == "--all":
		s.showAll = true
	default:
		return usage("show")
	}
	s.show()
	return nil
}

func (s *Shell) handleCard(_ context.Context, args []string) error {
	if len(args) != 1 {
		return usage("card")
	}
	l, c, ok := s.store.Card(args[0])
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCard, args[0])
	}
	render.Card(s.out, l, c)
	return nil
}

func (s *Shell) handleAdd(_ context.Context, args []string) error {
	if len(args) < 4 || len(args) > 5 {
		return usage("add")
	}
	in := board.NewCard{
		ListID:     args[0],
		CourseCode: args[1],
		CourseName: args[2],
		Material:   args[3],
	}
	if len(args) == 5 {
		in.Difficulty = domain.Difficulty(args[4])
	}
	c, err := s.store.AddCard(in)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrUnknownList, in.ListID)
	}
	render.OK(s.out, fmt.Sprintf("added %s", c.ID))
	return nil
}

// handleImport adds the entries of a plan file in order. It stops at the
// first entry the board rejects; earlier entries stay added.
func (s *Shell) handleImport(_ context.Context, args []string) error {
	if len(args) != 2 {
		return usage("import")
	}
	entries, err := parser.ParseFile(args[1])
	if err != nil {
		return fmt.Errorf("read plan %s: %w", args[1], err)
	}
	for _, e := range entries {
		c, err := s.store.AddCard(e.NewCard(args[0]))
		if err != nil {
			return fmt.Errorf("import %s: %w", e.CourseCode, err)
		}
		if c == nil {
			return fmt.Errorf("%w: %s", ErrUnknownList, args[0])
		}
		if e.Description != "" {
			if err := s.store.UpdateCardField(c.ID, board.FieldDescription, e.Description); err != nil {
				return err
			}
		}
		if e.Notes != "" {
			if err := s.store.UpdateCardField(c.ID, board.FieldNotes, e.Notes); err != nil {
				return err
			}
		}
	}
	render.OK(s.out, fmt.Sprintf("imported %d cards into %s", len(entries), args[0]))
	return nil
}

func (s *Shell) handleEdit(_ context.Context, args []string) error {
	if len(args) != 3 {
		return usage("edit")
	}
	return s.update(args[0], board.Field(args[1]), args[2])
}

// handleGrade rejects anything a grade input would not accept as typed,
// then stores the normalized value.
func (s *Shell) handleGrade(_ context.Context, args []string) error {
	if len(args) != 3 {
		return usage("grade")
	}
	var f board.Field
	switch args[1] {
	case "pre":
		f = board.FieldPreTestGrade
	case "post":
		f = board.FieldPostTestGrade
	default:
		return usage("grade")
	}
	if !grade.AcceptKeystroke(args[2]) {
		return fmt.Errorf("%w: grade %q is not a number", board.ErrInvalidValue, args[2])
	}
	return s.update(args[0], f, args[2])
}

func (s *Shell) update(cardID string, f board.Field, raw string) error {
	if _, _, ok := s.store.Card(cardID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCard, cardID)
	}
	value, err := board.ParseValue(f, raw)
	if err != nil {
		return err
	}
	if err := s.store.UpdateCardField(cardID, f, value); err != nil {
		return err
	}
	render.OK(s.out, fmt.Sprintf("updated %s of %s", f, cardID))
	return nil
}

func (s *Shell) handleMove(_ context.Context, args []string) error {
	if len(args) != 4 {
		return usage("move")
	}
	src, err1 := strconv.Atoi(args[1])
	dst, err2 := strconv.Atoi(args[3])
	if err := errors.Join(err1, err2); err != nil {
		return fmt.Errorf("move: indexes must be integers: %w", err)
	}
	m := board.Move{
		SourceListID:      args[0],
		SourceIndex:       src,
		DestinationListID: args[2],
		DestinationIndex:  dst,
	}
	if !s.store.MoveCard(m) {
		return fmt.Errorf("move: no card at %s[%d] or unknown list %s", m.SourceListID, m.SourceIndex, m.DestinationListID)
	}
	render.OK(s.out, fmt.Sprintf("moved %s[%d] to %s", m.SourceListID, m.SourceIndex, m.DestinationListID))
	return nil
}

func (s *Shell) handleArchive(_ context.Context, args []string) error {
	return s.flag("archive", args, s.store.ArchiveCard, "archived")
}

func (s *Shell) handleRestore(_ context.Context, args []string) error {
	return s.flag("restore", args, s.store.RestoreCard, "restored")
}

func (s *Shell) handleDelete(_ context.Context, args []string) error {
	return s.flag("delete", args, s.store.DeleteCard, "deleted")
}

func (s *Shell) flag(name string, args []string, apply func(string), done string) error {
	if len(args) != 1 {
		return usage(name)
	}
	if _, _, ok := s.store.Card(args[0]); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCard, args[0])
	}
	apply(args[0])
	render.OK(s.out, fmt.Sprintf("%s %s", done, args[0]))
	return nil
}

func (s *Shell) handleAdding(_ context.Context, args []string) error {
	if len(args) != 2 {
		return usage("adding")
	}
	var adding bool
	switch args[1] {
	case "on":
		adding = true
	case "off":
	default:
		return usage("adding")
	}
	s.store.SetAddingCard(args[0], adding)
	s.show()
	return nil
}

func (s *Shell) handleTimer(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("timer")
	}
	if s.newTimer == nil {
		return fmt.Errorf("study timer unavailable")
	}
	t, err := s.timer(ctx, args[1])
	if err != nil {
		return err
	}

	switch args[0] {
	case "start":
		if err := t.Start(ctx); err != nil {
			return err
		}
		render.OK(s.out, "study timer started for "+args[1])
	case "stop":
		if err := t.Stop(ctx); err != nil {
			return err
		}
		render.OK(s.out, "study timer stopped for "+args[1])
	case "status":
	default:
		return usage("timer")
	}
	render.Timer(s.out, args[1], t.Running(), t.ElapsedMinutes(), t.TotalMinutes())
	return nil
}

// Timer returns the card's timer, creating it and loading its history on
// first use.
func (s *Shell) Timer(ctx context.Context, cardID string) (*studytimer.Timer, error) {
	if s.newTimer == nil {
		return nil, fmt.Errorf("study timer unavailable")
	}
	return s.timer(ctx, cardID)
}

func (s *Shell) timer(ctx context.Context, cardID string) (*studytimer.Timer, error) {
	if t, ok := s.timers[cardID]; ok {
		return t, nil
	}
	l, _, ok := s.store.Card(cardID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCard, cardID)
	}
	t := s.newTimer(cardID, l.Title)
	if _, err := t.Resume(ctx); err != nil {
		s.logger.Warn("Could not load study history", "card", cardID, "error", err)
	}
	s.timers[cardID] = t
	return t, nil
}
