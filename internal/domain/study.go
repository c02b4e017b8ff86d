package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Timestamp is a backend time value. The backend emits RFC 3339 for
// client-written fields and RFC 1123 (HTTP date) for server-written ones, so
// both are accepted on decode; encoding always uses RFC 3339.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, layout := range []string{time.RFC3339Nano, http.TimeFormat, time.RFC1123Z} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized format %q", s)
}

// StudySession is one timed study period for a card, as recorded by the
// backend. An open session has no EndTime.
type StudySession struct {
	ID        string     `json:"_id"`
	CardID    string     `json:"card_id"`
	StartTime Timestamp  `json:"start_time,omitzero"`
	EndTime   *Timestamp `json:"end_time,omitempty"`
}

// Active reports whether the session is still running.
func (s StudySession) Active() bool {
	return s.EndTime == nil
}

// StudySessions is the backend's per-card session history.
type StudySessions struct {
	Sessions          []StudySession `json:"sessions"`
	TotalStudyMinutes float64        `json:"total_study_time_minutes"`
}

// ActiveSession returns the first session without an end time.
func (s StudySessions) ActiveSession() (StudySession, bool) {
	for _, sess := range s.Sessions {
		if sess.Active() {
			return sess, true
		}
	}
	return StudySession{}, false
}

// ProgressReport summarizes how many cards sit in each list and how many
// are done.
type ProgressReport struct {
	TotalCards         int            `json:"total_cards"`
	DoneCards          int            `json:"done_cards"`
	ProgressPercentage float64        `json:"progress_percentage"`
	ListReport         map[string]int `json:"list_report"`
}
