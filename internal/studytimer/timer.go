// Package studytimer tracks a study session for a single card.
package studytimer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/conorfennell/studyboard/internal/credentials"
	"github.com/conorfennell/studyboard/internal/domain"
)

// ReflectionList is the title of the list whose cards cannot be timed.
const ReflectionList = "Reflection (Done)"

var (
	ErrDisabled  = errors.New("study timer is disabled for this list")
	ErrNoSession = errors.New("not logged in")
	ErrRunning   = errors.New("study timer already running")
	ErrStopped   = errors.New("study timer not running")
)

// Backend is the study-session part of the API client.
type Backend interface {
	StartStudySession(ctx context.Context, token, cardID string) (domain.StudySession, error)
	EndStudySession(ctx context.Context, token, sessionID string) error
	StudySessions(ctx context.Context, token, cardID string) (domain.StudySessions, error)
}

// Timer runs one card's study sessions. While a session is open it
// recomputes the elapsed whole minutes on every tick.
type Timer struct {
	backend  Backend
	session  credentials.Session
	cardID   string
	listName string
	interval time.Duration
	now      func() time.Time
	onTick   func(elapsedMinutes int)
	logger   *slog.Logger

	mu           sync.Mutex
	current      *domain.StudySession
	startedAt    time.Time
	elapsed      int
	totalMinutes float64
	cancel       context.CancelFunc
	done         chan struct{}
}

type Option func(*Timer)

// WithInterval sets how often elapsed time is recomputed. The default is
// one minute.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) { t.interval = d }
}

func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// OnTick registers a callback run on the ticker goroutine after each
// recomputation.
func OnTick(fn func(elapsedMinutes int)) Option {
	return func(t *Timer) { t.onTick = fn }
}

// InList records the title of the list holding the card.
func InList(title string) Option {
	return func(t *Timer) { t.listName = title }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Timer) { t.logger = l }
}

func New(backend Backend, sess credentials.Session, cardID string, opts ...Option) *Timer {
	t := &Timer{
		backend:  backend,
		session:  sess,
		cardID:   cardID,
		interval: time.Minute,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Disabled reports whether the card sits in the reflection list.
func (t *Timer) Disabled() bool {
	return t.listName == ReflectionList
}

// Resume loads the card's history, adopting an open session if the
// backend has one. It returns whether a session is now running.
func (t *Timer) Resume(ctx context.Context) (bool, error) {
	if !t.session.LoggedIn() {
		return false, ErrNoSession
	}
	history, err := t.backend.StudySessions(ctx, t.session.Token, t.cardID)
	if err != nil {
		return false, fmt.Errorf("load study sessions for %s: %w", t.cardID, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalMinutes = history.TotalStudyMinutes
	active, ok := history.ActiveSession()
	if !ok || t.current != nil {
		return t.current != nil, nil
	}
	start := active.StartTime.Time
	if start.IsZero() {
		start = t.now()
	}
	t.runLocked(active, start)
	return true, nil
}

// Start opens a backend session and starts ticking.
func (t *Timer) Start(ctx context.Context) error {
	if t.Disabled() {
		return ErrDisabled
	}
	if !t.session.LoggedIn() {
		return ErrNoSession
	}
	t.mu.Lock()
	running := t.current != nil
	t.mu.Unlock()
	if running {
		return ErrRunning
	}

	sess, err := t.backend.StartStudySession(ctx, t.session.Token, t.cardID)
	if err != nil {
		t.logger.Error("Failed to start study session", "card", t.cardID, "error", err)
		return fmt.Errorf("start study session: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		return ErrRunning
	}
	t.runLocked(sess, t.now())
	t.logger.Info("study session started", "card", t.cardID, "session", sess.ID)
	return nil
}

// Stop closes the backend session, stops ticking, and refreshes the total.
// When the backend refuses, the timer keeps running.
func (t *Timer) Stop(ctx context.Context) error {
	if !t.session.LoggedIn() {
		return ErrNoSession
	}
	t.mu.Lock()
	cur := t.current
	t.mu.Unlock()
	if cur == nil {
		return ErrStopped
	}

	if err := t.backend.EndStudySession(ctx, t.session.Token, cur.ID); err != nil {
		t.logger.Error("Failed to end study session", "card", t.cardID, "session", cur.ID, "error", err)
		return fmt.Errorf("end study session: %w", err)
	}

	t.Close()
	t.mu.Lock()
	t.current = nil
	t.startedAt = time.Time{}
	t.elapsed = 0
	t.mu.Unlock()
	t.logger.Info("study session ended", "card", t.cardID, "session", cur.ID)

	history, err := t.backend.StudySessions(ctx, t.session.Token, t.cardID)
	if err != nil {
		t.logger.Error("Error fetching study sessions", "card", t.cardID, "error", err)
		return nil
	}
	t.mu.Lock()
	t.totalMinutes = history.TotalStudyMinutes
	t.mu.Unlock()
	return nil
}

// Close stops the ticker goroutine without ending the backend session. It
// waits for the goroutine to exit.
func (t *Timer) Close() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a session is open.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil
}

// ElapsedMinutes is the whole minutes of the open session, computed when the
// session starts or is resumed and again on each tick.
func (t *Timer) ElapsedMinutes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// TotalMinutes is the backend's total for closed sessions.
func (t *Timer) TotalMinutes() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalMinutes
}

func (t *Timer) runLocked(sess domain.StudySession, start time.Time) {
	t.current = &sess
	t.startedAt = start
	t.elapsed = max(0, int(t.now().Sub(start)/time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancel, t.done = cancel, done
	go t.tick(ctx, done, start)
}

func (t *Timer) tick(ctx context.Context, done chan struct{}, start time.Time) {
	defer close(done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := int(t.now().Sub(start) / time.Minute)
			t.mu.Lock()
			t.elapsed = elapsed
			t.mu.Unlock()
			if t.onTick != nil {
				t.onTick(elapsed)
			}
		}
	}
}

// FormatMinutes renders a duration in minutes as "2d 3h 4m", "3h 4m" or
// "4m".
func FormatMinutes(minutes int) string {
	days := minutes / (24 * 60)
	hours := minutes % (24 * 60) / 60
	rest := minutes % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, rest)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, rest)
	default:
		return fmt.Sprintf("%dm", rest)
	}
}
