package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	domainauth "recyclemart/internal/domain/auth"
)

const appDir = "recyclemart"

var ErrPathRequired = errors.New("file: session path is required")

// DefaultSessionPath is session.json under the user's config directory.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("file: locate config dir: %w", err)
	}
	return filepath.Join(dir, appDir, "session.json"), nil
}

// SessionStore persists the session as JSON on disk, readable only by the
// owner.
type SessionStore struct {
	path string
	mu   sync.Mutex
}

func NewSessionStore(path string) (*SessionStore, error) {
	if path == "" {
		return nil, ErrPathRequired
	}
	return &SessionStore{path: path}, nil
}

func (s *SessionStore) Path() string {
	return s.path
}

func (s *SessionStore) Load(ctx context.Context) (domainauth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domainauth.Session{}, domainauth.ErrSessionNotFound
	}
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("file: read session: %w", err)
	}
	var session domainauth.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domainauth.Session{}, fmt.Errorf("file: decode session: %w", err)
	}
	if session.Empty() {
		return domainauth.Session{}, domainauth.ErrSessionNotFound
	}
	return session, nil
}

// Save writes through a temp file and rename so a crash never leaves a
// truncated session behind.
func (s *SessionStore) Save(ctx context.Context, session domainauth.Session) error {
	if session.Empty() {
		return domainauth.ErrTokenRequired
	}
	raw, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("file: encode session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("file: create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.json")
	if err != nil {
		return fmt.Errorf("file: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("file: chmod temp: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("file: write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("file: replace session: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file: remove session: %w", err)
	}
	return nil
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
