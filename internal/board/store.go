package board

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/conorfennell/studyboard/internal/domain"
)

// Persister mirrors a board snapshot somewhere else. Push must not block on
// the network; the store calls it while handling user input.
type Persister interface {
	Push(boardID string, lists []*domain.List)
}

// Store owns the lists and cards of the open board. All mutation goes
// through its methods; readers get immutable snapshots.
type Store struct {
	mu          sync.Mutex
	notifyMu    sync.Mutex // orders delivery to subscribers and the persister
	id          string
	name        string
	lists       []*domain.List
	persister   Persister
	now         func() time.Time
	logger      *slog.Logger
	subscribers []func(domain.Board)
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the source of creation and movement
// times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for mutation traces.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore opens b for editing. A nil persister keeps the board local.
func NewStore(b domain.Board, p Persister, opts ...Option) *Store {
	s := &Store{
		id:        b.ID,
		name:      b.Name,
		lists:     slices.Clone(b.Lists),
		persister: p,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Snapshot returns the current board. The caller must not modify it.
func (s *Store) Snapshot() domain.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called with every published snapshot.
// Snapshots arrive in mutation order. fn runs outside the state lock and may
// read the store, but must not mutate it.
func (s *Store) Subscribe(fn func(domain.Board)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Card looks a card up by ID in the current snapshot.
func (s *Store) Card(cardID string) (*domain.List, *domain.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FindCard(s.lists, cardID)
}

// AddCard creates a card at the end of in.ListID. It returns nil, nil when
// the list does not exist.
func (s *Store) AddCard(in NewCard) (*domain.Card, error) {
	s.mu.Lock()
	next, card, err := AddCard(s.lists, in, s.now())
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.logger.Debug("add card", "list", in.ListID, "card", cardIDOf(card))
	s.publish(next, true)
	return card, nil
}

// UpdateCardField replaces one field of a card.
func (s *Store) UpdateCardField(cardID string, f Field, value any) error {
	s.mu.Lock()
	next, err := UpdateCardField(s.lists, cardID, f, value)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.logger.Debug("update card", "card", cardID, "field", f)
	s.publish(next, true)
	return nil
}

// MoveCard applies a drag-and-drop result. Invalid moves change nothing
// and push nothing.
func (s *Store) MoveCard(m Move) bool {
	s.mu.Lock()
	next, ok := MoveCard(s.lists, m, s.now())
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("ignored move", "from", m.SourceListID, "index", m.SourceIndex, "to", m.DestinationListID)
		return false
	}
	s.logger.Debug("move card", "from", m.SourceListID, "index", m.SourceIndex, "to", m.DestinationListID, "at", m.DestinationIndex)
	s.publish(next, true)
	return true
}

func (s *Store) ArchiveCard(cardID string) {
	s.mu.Lock()
	s.publish(SetArchived(s.lists, cardID, true), true)
}

func (s *Store) RestoreCard(cardID string) {
	s.mu.Lock()
	s.publish(SetArchived(s.lists, cardID, false), true)
}

func (s *Store) DeleteCard(cardID string) {
	s.mu.Lock()
	s.publish(MarkDeleted(s.lists, cardID), true)
}

// SetAddingCard toggles a list's add-card form. It is never pushed.
func (s *Store) SetAddingCard(listID string, adding bool) {
	s.mu.Lock()
	s.publish(SetAddingCard(s.lists, listID, adding), false)
}

func (s *Store) snapshotLocked() domain.Board {
	return domain.Board{ID: s.id, Name: s.name, Lists: s.lists}
}

// publish installs next as the current state and releases the lock taken by
// the caller. notifyMu is taken before the state lock is dropped, so
// subscribers and the persister see snapshots in the order they were made.
func (s *Store) publish(next []*domain.List, push bool) {
	s.lists = next
	b := s.snapshotLocked()
	subs := slices.Clone(s.subscribers)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, fn := range subs {
		fn(b)
	}
	if push && s.persister != nil {
		s.persister.Push(b.ID, b.Lists)
	}
}

func cardIDOf(c *domain.Card) string {
	if c == nil {
		return ""
	}
	return c.ID
}
