// Package fakeapi is an in-memory stand-in for the study-board backend. It
// serves the same endpoints as the real service for local development and
// tests.
package fakeapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/conorfennell/studyboard/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Server holds the state of one fake backend.
type Server struct {
	router chi.Router
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	tokens      map[string]bool
	board       domain.Board
	sessions    []domain.StudySession
	updates     int
	failUpdates bool
}

// Option configures a Server.
type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// DefaultBoard is the board the backend creates for a new user.
func DefaultBoard() domain.Board {
	return domain.Board{
		ID:   uuid.NewString(),
		Name: "My First Board",
		Lists: []*domain.List{
			{ID: "list1", Title: "To Do", Cards: []*domain.Card{}},
			{ID: "list2", Title: "In Progress", Cards: []*domain.Card{}},
			{ID: "list3", Title: "Done", Cards: []*domain.Card{}},
		},
	}
}

// NewServer creates a backend holding board that accepts the given tokens.
func NewServer(board domain.Board, tokens []string, opts ...Option) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: slog.Default(),
		now:    time.Now,
		tokens: make(map[string]bool, len(tokens)),
		board:  board,
	}
	for _, t := range tokens {
		s.tokens[t] = true
	}
	for _, o := range opts {
		o(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Board returns the stored board.
func (s *Server) Board() domain.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board
}

// Updates returns how many board updates were accepted.
func (s *Server) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

// FailUpdates makes every board update answer 500 until reset.
func (s *Server) FailUpdates(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUpdates = fail
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)

	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/board", s.handleGetBoard())
		r.Post("/update-board", s.handleUpdateBoard())
		r.Get("/progress-report", s.handleProgressReport())

		r.Route("/api/study-sessions", func(r chi.Router) {
			r.Post("/start", s.handleStartSession())
			r.Post("/end", s.handleEndSession())
			r.Get("/card/{cardID}", s.handleCardSessions())
		})
	})
}

// requireToken rejects requests without a known bearer token, the way the
// backend's JWT layer does.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Missing Authorization Header"})
			return
		}
		s.mu.Lock()
		known := s.tokens[token]
		s.mu.Unlock()
		if !known {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"msg": "Invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// handleGetBoard returns the whole board.
func (s *Server) handleGetBoard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Board())
	}
}

// handleUpdateBoard replaces the board's lists.
func (s *Server) handleUpdateBoard() http.HandlerFunc {
	type request struct {
		BoardID string         `json:"boardId"`
		Lists   []*domain.List `json:"lists"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, err)
			return
		}
		if req.BoardID == "" || req.Lists == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Missing Board ID or lists data"})
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failUpdates {
			httpError(w, http.StatusInternalServerError, errors.New("update failed"))
			return
		}
		if req.BoardID != s.board.ID {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Board not found or not modified"})
			return
		}
		s.board.Lists = req.Lists
		s.updates++
		writeJSON(w, http.StatusOK, map[string]string{"message": "Board updated successfully"})
	}
}

// handleProgressReport counts cards per list; lists with "done" in their
// title count as completed.
func (s *Server) handleProgressReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := s.Board()
		report := domain.ProgressReport{ListReport: make(map[string]int, len(b.Lists))}
		for _, l := range b.Lists {
			n := len(l.Cards)
			report.ListReport[l.Title] = n
			report.TotalCards += n
			if strings.Contains(strings.ToLower(l.Title), "done") {
				report.DoneCards += n
			}
		}
		if report.TotalCards > 0 {
			report.ProgressPercentage = float64(report.DoneCards) / float64(report.TotalCards) * 100
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// handleStartSession opens a study session for a card.
func (s *Server) handleStartSession() http.HandlerFunc {
	type request struct {
		CardID string `json:"card_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Missing card ID"})
			return
		}
		sess := domain.StudySession{
			ID:        uuid.NewString(),
			CardID:    req.CardID,
			StartTime: domain.Timestamp{Time: s.now().UTC()},
		}
		s.mu.Lock()
		s.sessions = append(s.sessions, sess)
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, sess)
	}
}

// handleEndSession closes an open study session.
func (s *Server) handleEndSession() http.HandlerFunc {
	type request struct {
		SessionID string `json:"session_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Missing session ID"})
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		i := slices.IndexFunc(s.sessions, func(sess domain.StudySession) bool {
			return sess.ID == req.SessionID && sess.Active()
		})
		if i < 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Session not found or already ended"})
			return
		}
		end := domain.Timestamp{Time: s.now().UTC()}
		s.sessions[i].EndTime = &end
		writeJSON(w, http.StatusOK, s.sessions[i])
	}
}

// handleCardSessions lists a card's sessions and the minutes studied in
// closed ones.
func (s *Server) handleCardSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cardID := chi.URLParam(r, "cardID")
		out := domain.StudySessions{Sessions: []domain.StudySession{}}

		s.mu.Lock()
		for _, sess := range s.sessions {
			if sess.CardID != cardID {
				continue
			}
			out.Sessions = append(out.Sessions, sess)
			if sess.EndTime != nil {
				out.TotalStudyMinutes += sess.EndTime.Sub(sess.StartTime.Time).Minutes()
			}
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	}
}

func httpError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
