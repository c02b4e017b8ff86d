package board

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/conorfennell/studyboard/internal/domain"
)

var (
	t0 = time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	t1 = t0.Add(2 * time.Hour)
)

func card(id, listID string) *domain.Card {
	return &domain.Card{
		ID:                  id,
		Title:               id,
		Difficulty:          domain.Medium,
		Priority:            domain.DefaultPriority,
		ColumnMovementTimes: map[string]time.Time{listID: t0},
	}
}

func sampleLists() []*domain.List {
	return []*domain.List{
		{ID: "todo", Title: "To Do", Cards: []*domain.Card{card("a", "todo"), card("b", "todo"), card("c", "todo")}},
		{ID: "doing", Title: "In Progress", Cards: []*domain.Card{card("d", "doing")}},
		{ID: "done", Title: "Done"},
	}
}

func ids(l *domain.List) []string {
	out := make([]string, 0, len(l.Cards))
	for _, c := range l.Cards {
		out = append(out, c.ID)
	}
	return out
}

func TestAddCard(t *testing.T) {
	lists := []*domain.List{{ID: "todo", Title: "To Do"}, {ID: "done", Title: "Done"}}

	out, c, err := AddCard(lists, NewCard{
		ListID:     "todo",
		CourseCode: "CS101",
		CourseName: "Algorithms",
		Material:   "Lecture 1",
		Difficulty: domain.Hard,
	}, t0)
	if err != nil {
		t.Fatalf("AddCard() returned an unexpected error: %v", err)
	}
	if c == nil {
		t.Fatal("Expected a card to be created")
	}

	if c.ID != "CS101-Algorithms-Lecture 1" {
		t.Errorf("Expected ID 'CS101-Algorithms-Lecture 1', but got '%s'", c.ID)
	}
	if c.Title != "Algorithms [CS101]" {
		t.Errorf("Expected title 'Algorithms [CS101]', but got '%s'", c.Title)
	}
	if c.SubTitle != "Lecture 1" {
		t.Errorf("Expected subtitle 'Lecture 1', but got '%s'", c.SubTitle)
	}
	if got, ok := c.ColumnMovementTimes["todo"]; !ok || !got.Equal(t0) {
		t.Errorf("Expected column movement time for 'todo' to be %v, got %v (set=%v)", t0, got, ok)
	}
	if c.Priority != "medium" || c.LearningStrategy != domain.DefaultLearningStrategy {
		t.Errorf("Expected default priority and learning strategy, got %q and %q", c.Priority, c.LearningStrategy)
	}
	if !c.CreatedAt.Equal(t0) {
		t.Errorf("Expected created_at %v, got %v", t0, c.CreatedAt)
	}

	if len(out[0].Cards) != 1 || out[0].Cards[0] != c {
		t.Errorf("Expected the card to be appended to 'todo', got %v", ids(out[0]))
	}
	if len(lists[0].Cards) != 0 {
		t.Error("Expected the input snapshot to be left untouched")
	}
	if out[1] != lists[1] {
		t.Error("Expected the untouched list to keep its identity")
	}

	t.Run("appends at the end", func(t *testing.T) {
		out, c, _ := AddCard(sampleLists(), NewCard{ListID: "todo", CourseCode: "X", CourseName: "Y", Difficulty: domain.Easy}, t0)
		if got := out[0].Cards[len(out[0].Cards)-1]; got != c {
			t.Errorf("Expected the new card last, got %v", ids(out[0]))
		}
	})

	t.Run("unknown list is a no-op", func(t *testing.T) {
		out, c, err := AddCard(lists, NewCard{ListID: "nope", CourseCode: "X", CourseName: "Y", Difficulty: domain.Easy}, t0)
		if err != nil || c != nil {
			t.Fatalf("Expected silent no-op, got card=%v err=%v", c, err)
		}
		if !reflect.DeepEqual(out, lists) {
			t.Error("Expected lists to be unchanged")
		}
	})

	t.Run("difficulty defaults to easy", func(t *testing.T) {
		_, c, err := AddCard(lists, NewCard{ListID: "todo", CourseCode: "X", CourseName: "Y"}, t0)
		if err != nil || c.Difficulty != domain.Easy {
			t.Errorf("Expected an easy card, got card=%v err=%v", c, err)
		}
	})

	t.Run("invalid difficulty is rejected", func(t *testing.T) {
		_, _, err := AddCard(lists, NewCard{ListID: "todo", CourseCode: "X", CourseName: "Y", Difficulty: "brutal"}, t0)
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Expected ErrInvalidValue, got %v", err)
		}
	})
}

func TestUpdateCardField(t *testing.T) {
	t.Run("replaces exactly one field", func(t *testing.T) {
		lists := sampleLists()
		out, err := UpdateCardField(lists, "b", FieldDescription, "read chapter 3")
		if err != nil {
			t.Fatalf("UpdateCardField() returned an unexpected error: %v", err)
		}
		got := out[0].Cards[1]
		want := lists[0].Cards[1].Clone()
		want.Description = "read chapter 3"
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %+v, got %+v", want, got)
		}
		if lists[0].Cards[1].Description != "" {
			t.Error("Expected the previous snapshot's card to be untouched")
		}
		if out[1] != lists[1] || out[2] != lists[2] {
			t.Error("Expected lists without the card to keep their identity")
		}
		if out[0].Cards[0] != lists[0].Cards[0] {
			t.Error("Expected untouched cards to be shared")
		}
	})

	t.Run("unknown card leaves the snapshot equal to the input", func(t *testing.T) {
		lists := sampleLists()
		before := sampleLists()
		out, err := UpdateCardField(lists, "missing", FieldTitle, "x")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !reflect.DeepEqual(out, before) {
			t.Error("Expected the snapshot to be deep-equal to the input")
		}
	})

	testCases := []struct {
		name    string
		field   Field
		value   any
		check   func(*domain.Card) bool
		wantErr error
	}{
		{"difficulty", FieldDifficulty, domain.Expert, func(c *domain.Card) bool { return c.Difficulty == domain.Expert }, nil},
		{"difficulty as string", FieldDifficulty, "easy", func(c *domain.Card) bool { return c.Difficulty == domain.Easy }, nil},
		{"bad difficulty", FieldDifficulty, "impossible", nil, ErrInvalidValue},
		{"rating", FieldRating, 4.5, func(c *domain.Card) bool { return c.Rating != nil && *c.Rating == 4.5 }, nil},
		{"rating cleared", FieldRating, nil, func(c *domain.Card) bool { return c.Rating == nil }, nil},
		{"pre-test clamped", FieldPreTestGrade, "150", func(c *domain.Card) bool { return c.PreTestGrade == "100" }, nil},
		{"post-test empty kept", FieldPostTestGrade, "", func(c *domain.Card) bool { return c.PostTestGrade == "" }, nil},
		{"pre-test negative clamped", FieldPreTestGrade, "-5", func(c *domain.Card) bool { return c.PreTestGrade == "0" }, nil},
		{"post-test NaN rejected", FieldPostTestGrade, "NaN", nil, ErrInvalidValue},
		{"pre-test text rejected", FieldPreTestGrade, "abc", nil, ErrInvalidValue},
		{"checklists", FieldChecklists, `[{"title":"ch1","items":[]}]`, func(c *domain.Card) bool { return string(c.Checklists) == `[{"title":"ch1","items":[]}]` }, nil},
		{"bad checklists", FieldChecklists, `[{`, nil, ErrInvalidValue},
		{"title wrong type", FieldTitle, 3, nil, ErrInvalidValue},
		{"unknown field", Field("owner"), "x", nil, ErrUnknownField},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lists := sampleLists()
			out, err := UpdateCardField(lists, "d", tc.field, tc.value)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Expected error %v, got %v", tc.wantErr, err)
				}
				if !reflect.DeepEqual(out, sampleLists()) {
					t.Error("Expected a rejected update to leave the snapshot unchanged")
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateCardField() returned an unexpected error: %v", err)
			}
			if !tc.check(out[1].Cards[0]) {
				t.Errorf("Field %s was not set as expected: %+v", tc.field, out[1].Cards[0])
			}
		})
	}
}

func TestMoveCardWithinList(t *testing.T) {
	testCases := []struct {
		name     string
		from, to int
		expected []string
	}{
		{"Down", 0, 2, []string{"b", "c", "a"}},
		{"Up", 2, 0, []string{"c", "a", "b"}},
		{"One step down", 0, 1, []string{"b", "a", "c"}},
		{"In place", 1, 1, []string{"a", "b", "c"}},
		{"Past the end is clamped", 0, 10, []string{"b", "c", "a"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lists := sampleLists()
			out, ok := MoveCard(lists, Move{SourceIndex: tc.from, DestinationIndex: tc.to, SourceListID: "todo", DestinationListID: "todo"}, t1)
			if !ok {
				t.Fatal("Expected the move to be applied")
			}
			if got := ids(out[0]); !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("Expected order %v, got %v", tc.expected, got)
			}
			if got := ids(lists[0]); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
				t.Errorf("Expected the previous snapshot to keep its order, got %v", got)
			}
			if out[1] != lists[1] || out[2] != lists[2] {
				t.Error("Expected other lists to keep their identity")
			}
			for _, c := range out[0].Cards {
				if len(c.ColumnMovementTimes) != 1 {
					t.Errorf("Expected no new column movement entry on card %s, got %v", c.ID, c.ColumnMovementTimes)
				}
			}
		})
	}
}

func TestMoveCardAcrossLists(t *testing.T) {
	lists := sampleLists()
	out, ok := MoveCard(lists, Move{SourceIndex: 1, DestinationIndex: 0, SourceListID: "todo", DestinationListID: "doing"}, t1)
	if !ok {
		t.Fatal("Expected the move to be applied")
	}

	if got := ids(out[0]); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Expected source order [a c], got %v", got)
	}
	if got := ids(out[1]); !reflect.DeepEqual(got, []string{"b", "d"}) {
		t.Errorf("Expected destination order [b d], got %v", got)
	}
	if out[2] != lists[2] {
		t.Error("Expected the uninvolved list to keep its identity")
	}

	moved := out[1].Cards[0]
	if got := moved.ColumnMovementTimes["doing"]; got.Before(t1) {
		t.Errorf("Expected destination time >= %v, got %v", t1, got)
	}
	if got := moved.ColumnMovementTimes["todo"]; !got.Equal(t0) {
		t.Errorf("Expected source time to stay %v, got %v", t0, got)
	}
	if _, ok := lists[0].Cards[1].ColumnMovementTimes["doing"]; ok {
		t.Error("Expected the previous snapshot's card to be untouched")
	}

	t.Run("into an empty list", func(t *testing.T) {
		out, ok := MoveCard(sampleLists(), Move{SourceIndex: 0, DestinationIndex: 5, SourceListID: "doing", DestinationListID: "done"}, t1)
		if !ok {
			t.Fatal("Expected the move to be applied")
		}
		if got := ids(out[2]); !reflect.DeepEqual(got, []string{"d"}) {
			t.Errorf("Expected [d] in done, got %v", got)
		}
		if len(out[1].Cards) != 0 {
			t.Errorf("Expected doing to be empty, got %v", ids(out[1]))
		}
	})

	t.Run("card without movement times", func(t *testing.T) {
		lists := sampleLists()
		lists[1].Cards[0].ColumnMovementTimes = nil
		out, _ := MoveCard(lists, Move{SourceIndex: 0, DestinationIndex: 0, SourceListID: "doing", DestinationListID: "done"}, t1)
		if got := out[2].Cards[0].ColumnMovementTimes; len(got) != 1 || !got["done"].Equal(t1) {
			t.Errorf("Expected a single entry for done, got %v", got)
		}
	})
}

func TestMoveCardInvalid(t *testing.T) {
	testCases := []struct {
		name string
		move Move
	}{
		{"Unknown source list", Move{SourceIndex: 0, SourceListID: "nope", DestinationListID: "todo"}},
		{"Unknown destination list", Move{SourceIndex: 0, SourceListID: "todo", DestinationListID: "nope"}},
		{"Source index past end", Move{SourceIndex: 3, SourceListID: "todo", DestinationListID: "done"}},
		{"Negative source index", Move{SourceIndex: -1, SourceListID: "todo", DestinationListID: "done"}},
		{"Empty source list", Move{SourceIndex: 0, SourceListID: "done", DestinationListID: "todo"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			lists := sampleLists()
			out, ok := MoveCard(lists, tc.move, t1)
			if ok {
				t.Error("Expected the move to be rejected")
			}
			if !reflect.DeepEqual(out, sampleLists()) {
				t.Error("Expected lists to be unchanged")
			}
		})
	}
}

func TestArchiveRestoreDelete(t *testing.T) {
	lists := sampleLists()
	visibleBefore := ids(&domain.List{Cards: lists[0].VisibleCards()})

	archived := SetArchived(lists, "b", true)
	if got := ids(&domain.List{Cards: archived[0].VisibleCards()}); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("Expected archived card to be hidden, visible %v", got)
	}
	if got := ids(archived[0]); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Expected archived card to stay in the sequence, got %v", got)
	}

	restored := SetArchived(archived, "b", false)
	if got := ids(&domain.List{Cards: restored[0].VisibleCards()}); !reflect.DeepEqual(got, visibleBefore) {
		t.Errorf("Expected restore to reproduce %v, got %v", visibleBefore, got)
	}

	deleted := MarkDeleted(restored, "c")
	if got := ids(&domain.List{Cards: deleted[0].VisibleCards()}); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Expected deleted card to be hidden, visible %v", got)
	}
	if !deleted[0].Cards[2].Deleted || len(deleted[0].Cards) != 3 {
		t.Error("Expected deleted card to stay in the sequence with its flag set")
	}
	if restored[0].Cards[2].Deleted {
		t.Error("Expected the previous snapshot to be untouched by delete")
	}
}

func TestSetAddingCard(t *testing.T) {
	lists := sampleLists()
	out := SetAddingCard(lists, "done", true)
	if !out[2].AddingCard || lists[2].AddingCard {
		t.Error("Expected only the new snapshot to have the form open")
	}
	if out[0] != lists[0] {
		t.Error("Expected other lists to keep their identity")
	}
	if same := SetAddingCard(out, "done", true); &same[0] != &out[0] {
		t.Error("Expected setting the same value to return the input")
	}
}

func TestParseValue(t *testing.T) {
	if v, err := ParseValue(FieldRating, "3.5"); err != nil || v.(float64) != 3.5 {
		t.Errorf("Expected 3.5, got %v (%v)", v, err)
	}
	if _, err := ParseValue(FieldRating, "lots"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue, got %v", err)
	}
	if v, err := ParseValue(FieldRating, ""); err != nil || v != nil {
		t.Errorf("Expected nil for an empty rating, got %v (%v)", v, err)
	}
	if _, err := ParseValue(Field("colour"), "red"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("Expected ErrUnknownField, got %v", err)
	}
	if v, err := ParseValue(FieldPreTestGrade, "-5"); err != nil || v != "-5" {
		t.Errorf("Expected the raw grade to pass through, got %v (%v)", v, err)
	}
	for _, raw := range []string{"NaN", "Inf", "ninety"} {
		if _, err := ParseValue(FieldPostTestGrade, raw); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Expected ErrInvalidValue for grade %q, got %v", raw, err)
		}
	}
	if v, _ := ParseValue(FieldDifficulty, "hard"); v != domain.Hard {
		t.Errorf("Expected domain.Hard, got %#v", v)
	}
}
