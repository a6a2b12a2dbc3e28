package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotAuthenticated = errors.New("auth: not authenticated")
	ErrSessionNotFound  = errors.New("auth: session not found")
)

// Session is the persisted sign-in state of this client.
type Session struct {
	Tokens
	SavedAt time.Time `json:"savedAt"`
}

// NewSession stamps tokens with the time they were stored.
func NewSession(tokens Tokens, now time.Time) (Session, error) {
	if tokens.Empty() {
		return Session{}, ErrTokenRequired
	}
	if now.IsZero() {
		now = time.Now()
	}
	return Session{Tokens: tokens, SavedAt: now.UTC()}, nil
}

// SessionStore keeps the single session of the local user.
type SessionStore interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, session Session) error
	Clear(ctx context.Context) error
}
