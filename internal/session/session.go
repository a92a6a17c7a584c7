// Package session persists the authenticated user's token and email.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	credFileName = "credentials.json"

	// EnvToken overrides the stored token when set.
	EnvToken = "TADA_TOKEN"
	// EnvEmail names the user for an env-provided token.
	EnvEmail = "TADA_EMAIL"

	SourceEnv  = "env"
	SourceFile = "file"
)

// ErrEmptyToken is returned when saving a blank token.
var ErrEmptyToken = errors.New("empty token")

// Session is the authenticated user: a bearer token and the email it belongs to.
type Session struct {
	Token     string     `json:"token"`
	Email     string     `json:"email"`
	Source    string     `json:"source"`     // "env" | "file"
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at"` // from the JWT exp claim, if any
}

// Expired reports whether the token carries an expiry that has passed.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// Store keeps the session in dir/credentials.json, owner-only.
type Store struct {
	dir string
	now func() time.Time
}

// DefaultDir is ~/.tada.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".tada"), nil
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir is the directory holding the credentials file.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path() string { return filepath.Join(s.dir, credFileName) }

// Load returns the current session, or nil when nobody is logged in.
// TADA_TOKEN takes precedence over the file.
func (s *Store) Load() (*Session, error) {
	if env := strings.TrimSpace(os.Getenv(EnvToken)); env != "" {
		tok := stripBearer(env)
		return &Session{
			Token:     tok,
			Email:     strings.TrimSpace(os.Getenv(EnvEmail)),
			Source:    SourceEnv,
			ExpiresAt: tokenExpiry(tok),
		}, nil
	}

	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil // not logged in
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	sess.Token = stripBearer(sess.Token)
	if sess.Token == "" {
		return nil, nil
	}
	return &sess, nil
}

// Save replaces the stored session with token and email.
func (s *Store) Save(token, email string) (*Session, error) {
	token = stripBearer(strings.TrimSpace(token))
	if token == "" {
		return nil, ErrEmptyToken
	}
	// ensure the dir exists with 0700
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	sess := &Session{
		Token:     token,
		Email:     strings.TrimSpace(email),
		Source:    SourceFile,
		CreatedAt: s.now(),
		ExpiresAt: tokenExpiry(token),
	}
	b, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	// write with 0600 (owner-only)
	if err := os.WriteFile(s.path(), b, 0o600); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return sess, nil
}

// Clear removes the stored session. Clearing an absent session is fine.
func (s *Store) Clear() error {
	if err := os.Remove(s.path()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// Token implements api.TokenSource. It re-reads the session on every call.
func (s *Store) Token() (string, error) {
	sess, err := s.Load()
	if err != nil || sess == nil {
		return "", err
	}
	return sess.Token, nil
}

func stripBearer(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
