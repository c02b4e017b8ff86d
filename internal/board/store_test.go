package board

import (
	"sync"
	"testing"
	"time"

	"github.com/conorfennell/studyboard/internal/domain"
)

type push struct {
	boardID string
	lists   []*domain.List
}

type recordingPersister struct {
	mu     sync.Mutex
	pushes []push
}

func (r *recordingPersister) Push(boardID string, lists []*domain.List) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, push{boardID, lists})
}

func (r *recordingPersister) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushes)
}

func newTestStore() (*Store, *recordingPersister) {
	p := &recordingPersister{}
	s := NewStore(domain.Board{ID: "b1", Name: "Semester", Lists: sampleLists()}, p, WithClock(func() time.Time { return t1 }))
	return s, p
}

func TestStorePushesEveryMutation(t *testing.T) {
	s, p := newTestStore()

	if _, err := s.AddCard(NewCard{ListID: "todo", CourseCode: "CS101", CourseName: "Algorithms", Material: "Lecture 1", Difficulty: domain.Easy}); err != nil {
		t.Fatalf("AddCard() returned an unexpected error: %v", err)
	}
	if err := s.UpdateCardField("a", FieldNotes, "skim"); err != nil {
		t.Fatalf("UpdateCardField() returned an unexpected error: %v", err)
	}
	if !s.MoveCard(Move{SourceIndex: 0, DestinationIndex: 0, SourceListID: "todo", DestinationListID: "done"}) {
		t.Fatal("Expected the move to be applied")
	}
	s.ArchiveCard("b")
	s.RestoreCard("b")
	s.DeleteCard("c")

	if got := p.count(); got != 6 {
		t.Fatalf("Expected 6 pushes, got %d", got)
	}
	last := p.pushes[len(p.pushes)-1]
	if last.boardID != "b1" {
		t.Errorf("Expected pushes keyed by board 'b1', got '%s'", last.boardID)
	}
	snap := s.Snapshot()
	if &last.lists[0] != &snap.Lists[0] {
		t.Error("Expected the pushed lists to be the published snapshot")
	}
	if got := s.Snapshot().Lists[2].Cards[0].ColumnMovementTimes["done"]; !got.Equal(t1) {
		t.Errorf("Expected the store clock to stamp the move, got %v", got)
	}
}

func TestStoreDoesNotPush(t *testing.T) {
	t.Run("adding-card toggle", func(t *testing.T) {
		s, p := newTestStore()
		s.SetAddingCard("todo", true)
		if p.count() != 0 {
			t.Error("Expected the add-card toggle to stay local")
		}
		if !s.Snapshot().Lists[0].AddingCard {
			t.Error("Expected the flag to be published")
		}
	})

	t.Run("rejected move", func(t *testing.T) {
		s, p := newTestStore()
		if s.MoveCard(Move{SourceIndex: 9, SourceListID: "todo", DestinationListID: "done"}) {
			t.Error("Expected the move to be rejected")
		}
		if p.count() != 0 {
			t.Error("Expected no push for a rejected move")
		}
	})

	t.Run("invalid edit", func(t *testing.T) {
		s, p := newTestStore()
		if err := s.UpdateCardField("a", FieldDifficulty, "legendary"); err == nil {
			t.Error("Expected an error for an invalid difficulty")
		}
		if p.count() != 0 {
			t.Error("Expected no push for a rejected edit")
		}
	})
}

func TestStoreSnapshotsAreStable(t *testing.T) {
	s, _ := newTestStore()
	before := s.Snapshot()
	s.MoveCard(Move{SourceIndex: 0, DestinationIndex: 2, SourceListID: "todo", DestinationListID: "todo"})

	if got := ids(before.Lists[0]); got[0] != "a" {
		t.Errorf("Expected the earlier snapshot to keep its order, got %v", got)
	}
	if got := ids(s.Snapshot().Lists[0]); got[2] != "a" {
		t.Errorf("Expected the new snapshot to have 'a' last, got %v", got)
	}
}

func TestStoreSubscribe(t *testing.T) {
	s, _ := newTestStore()
	var seen []domain.Board
	s.Subscribe(func(b domain.Board) { seen = append(seen, b) })

	s.SetAddingCard("todo", true)
	s.ArchiveCard("a")

	if len(seen) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(seen))
	}
	if !seen[1].Lists[0].Cards[0].Archived {
		t.Error("Expected the second snapshot to carry the archived card")
	}
}

func TestStoreDeliversSnapshotsInOrder(t *testing.T) {
	s, p := newTestStore()
	var seen []int
	s.Subscribe(func(b domain.Board) { seen = append(seen, len(b.Lists[0].Cards)) })

	const adds = 50
	var wg sync.WaitGroup
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddCard(NewCard{ListID: "todo", CourseCode: "X", CourseName: "Y", Difficulty: domain.Easy}); err != nil {
				t.Errorf("AddCard() returned an unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(seen) != adds {
		t.Fatalf("Expected %d notifications, got %d", adds, len(seen))
	}
	for i, n := range seen {
		if want := 3 + i + 1; n != want {
			t.Fatalf("Expected snapshot %d to hold %d cards, but got %d", i, want, n)
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, got := range p.pushes {
		if want := 3 + i + 1; len(got.lists[0].Cards) != want {
			t.Fatalf("Expected push %d to hold %d cards, but got %d", i, want, len(got.lists[0].Cards))
		}
	}
}

func TestStoreWithoutPersister(t *testing.T) {
	s := NewStore(domain.Board{Lists: sampleLists()}, nil)
	s.DeleteCard("a")
	if _, c, ok := s.Card("a"); !ok || !c.Deleted {
		t.Error("Expected a local-only store to apply mutations")
	}
}
