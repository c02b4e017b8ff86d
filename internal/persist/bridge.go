// Package persist mirrors the open board to the backend. It never reads
// state back after the initial fetch: a failed push is logged and
// journaled, and the local board carries on.
package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/conorfennell/studyboard/internal/api"
	"github.com/conorfennell/studyboard/internal/credentials"
	"github.com/conorfennell/studyboard/internal/domain"
	"github.com/conorfennell/studyboard/internal/ident"
	"github.com/conorfennell/studyboard/internal/storage"
)

// ErrLoginRequired means the board could not be loaded for the session and
// the user has to log in again.
var ErrLoginRequired = errors.New("login required")

// Backend is the part of the API client the bridge needs.
type Backend interface {
	GetBoard(ctx context.Context, token string) (domain.Board, error)
	UpdateBoard(ctx context.Context, token, boardID string, lists []*domain.List) (api.MessageResponse, error)
}

// Journal records push outcomes.
type Journal interface {
	InsertPush(p storage.Push) (int64, error)
}

// Bridge pushes board snapshots and fetches the initial board.
type Bridge struct {
	backend Backend
	journal Journal
	logger  *slog.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithJournal records every push attempt in j.
func WithJournal(j Journal) Option {
	return func(b *Bridge) { b.journal = j }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

func NewBridge(backend Backend, opts ...Option) *Bridge {
	b := &Bridge{
		backend: backend,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Fetch loads the session's board. A missing token or any failure returns
// an error wrapping ErrLoginRequired; there is no retry.
func (b *Bridge) Fetch(ctx context.Context, sess credentials.Session) (domain.Board, error) {
	if !sess.LoggedIn() {
		return domain.Board{}, ErrLoginRequired
	}
	board, err := b.backend.GetBoard(ctx, sess.Token)
	if err != nil {
		b.logger.Error("Error fetching board data", "error", err)
		return domain.Board{}, fmt.Errorf("%w: %w", ErrLoginRequired, err)
	}
	b.logger.Debug("board fetched", "board_id", board.ID, "lists", len(board.Lists))
	return board, nil
}

// Push sends lists to the backend on a new goroutine and returns at once.
// Without a board ID or a token it does nothing. Pushes are not ordered
// against each other; the backend keeps whichever arrives last.
func (b *Bridge) Push(sess credentials.Session, boardID string, lists []*domain.List) {
	if boardID == "" || !sess.LoggedIn() {
		b.logger.Debug("push skipped", "board_id", boardID, "logged_in", sess.LoggedIn())
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.push(context.Background(), sess.Token, boardID, lists)
	}()
}

// Wait blocks until every push started so far has finished.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

func (b *Bridge) push(ctx context.Context, token, boardID string, lists []*domain.List) {
	started := b.now()
	msg, err := b.backend.UpdateBoard(ctx, token, boardID, lists)
	entry := storage.Push{
		BoardID:   boardID,
		Cards:     countCards(lists),
		StartedAt: started,
		Duration:  b.now().Sub(started),
		Status:    200,
	}

	if err != nil {
		entry.Status = 0
		var se *api.StatusError
		if errors.As(err, &se) {
			entry.Status = se.Code
		}
		entry.Error = sql.NullString{String: err.Error(), Valid: true}
		b.logger.Error("Error updating board", "board_id", boardID, "status", entry.Status, "error", err)
	} else {
		b.logger.Info("Board updated", "board_id", boardID, "message", msg.Message, "duration", entry.Duration)
	}
	b.record(entry, lists)
}

func (b *Bridge) record(entry storage.Push, lists []*domain.List) {
	if b.journal == nil {
		return
	}
	fp, err := ident.Fingerprint(lists)
	if err != nil {
		b.logger.Warn("Failed to fingerprint pushed lists", "error", err)
	}
	entry.Fingerprint = fp
	if _, err := b.journal.InsertPush(entry); err != nil {
		b.logger.Warn("Failed to journal push", "board_id", entry.BoardID, "error", err)
	}
}

// Bound pairs a Bridge with the session whose token it pushes with. It
// satisfies board.Persister.
type Bound struct {
	Bridge  *Bridge
	Session credentials.Session
}

func (p Bound) Push(boardID string, lists []*domain.List) {
	p.Bridge.Push(p.Session, boardID, lists)
}

func countCards(lists []*domain.List) int {
	n := 0
	for _, l := range lists {
		n += len(l.Cards)
	}
	return n
}
