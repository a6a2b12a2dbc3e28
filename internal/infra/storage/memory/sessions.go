package memory

import (
	"context"
	"sync"

	domainauth "recyclemart/internal/domain/auth"
)

// SessionStore keeps the session in process memory. The bridge uses it when
// no session file is configured.
type SessionStore struct {
	mu      sync.RWMutex
	session *domainauth.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Load returns the stored session or domainauth.ErrSessionNotFound.
func (s *SessionStore) Load(ctx context.Context) (domainauth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return domainauth.Session{}, domainauth.ErrSessionNotFound
	}
	return *s.session, nil
}

func (s *SessionStore) Save(ctx context.Context, session domainauth.Session) error {
	if session.Empty() {
		return domainauth.ErrTokenRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &session
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
