// Package credentials resolves the auth token used for backend calls. The
// token travels in an explicit Session value; nothing in the module reads
// it from a global.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

const (
	EnvToken     = "STUDYBOARD_TOKEN"
	fileName     = "credentials.yaml"
	lockRetry    = 50 * time.Millisecond
	sourceEnv    = "env"
	sourceFile   = "file"
	sourceInline = "inline"
)

// Session carries the caller's identity into backend operations.
type Session struct {
	Token  string
	Source string
}

// LoggedIn reports whether the session has a token.
func (s Session) LoggedIn() bool {
	return s.Token != ""
}

// WithToken builds a session around a token supplied directly.
func WithToken(token string) Session {
	return Session{Token: stripBearer(strings.TrimSpace(token)), Source: sourceInline}
}

type record struct {
	Token     string     `yaml:"token"`
	CreatedAt time.Time  `yaml:"created_at"`
	ExpiresAt *time.Time `yaml:"expires_at,omitempty"`
}

// Store keeps the token in a YAML file readable only by its owner. Reads
// and writes hold a file lock so concurrent CLI invocations do not see a
// half-written file.
type Store struct {
	path string
	lock *flock.Flock
}

// DefaultPath is ~/.studyboard/credentials.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".studyboard", fileName), nil
}

func NewStore(path string) *Store {
	return &Store{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the credentials file location.
func (s *Store) Path() string {
	return s.path
}

// Resolve returns the session to use: the environment token when set,
// otherwise the stored one. A missing file yields an empty session.
func (s *Store) Resolve(ctx context.Context) (Session, error) {
	if env := strings.TrimSpace(os.Getenv(EnvToken)); env != "" {
		return Session{Token: stripBearer(env), Source: sourceEnv}, nil
	}
	return s.Load(ctx)
}

// Load reads the stored session.
func (s *Store) Load(ctx context.Context) (Session, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return Session{}, fmt.Errorf("mkdir: %w", err)
	}
	if _, err := s.lock.TryRLockContext(ctx, lockRetry); err != nil {
		return Session{}, fmt.Errorf("lock credentials: %w", err)
	}
	defer s.lock.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("read credentials: %w", err)
	}
	var rec record
	if err := yaml.Unmarshal(b, &rec); err != nil {
		return Session{}, fmt.Errorf("parse credentials: %w", err)
	}
	if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
		return Session{}, nil
	}
	return Session{Token: stripBearer(rec.Token), Source: sourceFile}, nil
}

// Save stores token, replacing any previous one.
func (s *Store) Save(ctx context.Context, token string, expires *time.Time) error {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := yaml.Marshal(record{Token: token, CreatedAt: time.Now().UTC(), ExpiresAt: expires})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if _, err := s.lock.TryLockContext(ctx, lockRetry); err != nil {
		return fmt.Errorf("lock credentials: %w", err)
	}
	defer s.lock.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Delete removes the stored token. Deleting a missing file is not an error.
func (s *Store) Delete(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if _, err := s.lock.TryLockContext(ctx, lockRetry); err != nil {
		return fmt.Errorf("lock credentials: %w", err)
	}
	defer s.lock.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
