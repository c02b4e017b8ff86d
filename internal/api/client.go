package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conorfennell/studyboard/internal/domain"
)

const (
	DefaultBaseURL = "http://localhost:5000"
	maxErrorBody   = 2 << 10
	maxBody        = 16 << 20
)

// ErrUnauthorized matches a StatusError for a rejected or expired token.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: upstream status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Is matches ErrUnauthorized for 401 and for the 422 the backend's JWT
// layer sends on a malformed token.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && (e.Code == http.StatusUnauthorized || e.Code == http.StatusUnprocessableEntity)
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each request. It applies to a copy of the HTTP client,
// so a shared client passed to WithHTTPClient is left alone.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// Client talks to the study-board backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		userAgent:  "studyboard",
	}
	for _, o := range opts {
		o(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// GetBoard fetches the caller's board.
func (c *Client) GetBoard(ctx context.Context, token string) (domain.Board, error) {
	var b domain.Board
	if err := c.do(ctx, http.MethodGet, "/board", token, nil, &b); err != nil {
		return domain.Board{}, err
	}
	return b, nil
}

type updateBoardRequest struct {
	BoardID string         `json:"boardId"`
	Lists   []*domain.List `json:"lists"`
}

// MessageResponse is the backend's acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// UpdateBoard replaces the lists of a board.
func (c *Client) UpdateBoard(ctx context.Context, token, boardID string, lists []*domain.List) (MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, http.MethodPost, "/update-board", token, updateBoardRequest{BoardID: boardID, Lists: lists}, &out)
	return out, err
}

// ProgressReport fetches the per-list card counts of the caller's board.
func (c *Client) ProgressReport(ctx context.Context, token string) (domain.ProgressReport, error) {
	var r domain.ProgressReport
	err := c.do(ctx, http.MethodGet, "/progress-report", token, nil, &r)
	return r, err
}

// StartStudySession opens a study session for a card.
func (c *Client) StartStudySession(ctx context.Context, token, cardID string) (domain.StudySession, error) {
	var s domain.StudySession
	body := map[string]string{"card_id": cardID}
	if err := c.do(ctx, http.MethodPost, "/api/study-sessions/start", token, body, &s); err != nil {
		return domain.StudySession{}, err
	}
	if s.ID == "" {
		return domain.StudySession{}, fmt.Errorf("start study session: response has no session id")
	}
	return s, nil
}

// EndStudySession closes a study session.
func (c *Client) EndStudySession(ctx context.Context, token, sessionID string) error {
	body := map[string]string{"session_id": sessionID}
	return c.do(ctx, http.MethodPost, "/api/study-sessions/end", token, body, nil)
}

// StudySessions returns a card's session history and total study time.
func (c *Client) StudySessions(ctx context.Context, token, cardID string) (domain.StudySessions, error) {
	var s domain.StudySessions
	err := c.do(ctx, http.MethodGet, "/api/study-sessions/card/"+url.PathEscape(cardID), token, nil, &s)
	return s, err
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
