package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	domainauth "recyclemart/internal/domain/auth"
	domainchat "recyclemart/internal/domain/chat"
)

// ConnectionManager owns at most one Gateway per chat session. Concurrent
// callers of Ensure share a single dial.
type ConnectionManager struct {
	Dialer   Dialer
	Tokens   TokenSource
	Notifier Notifier
	Logger   *slog.Logger
	// Events are forwarded from the transport after the manager has
	// updated its own state.
	Events Events

	group singleflight.Group

	mu        sync.Mutex
	gw        Gateway
	hint      domainauth.IdentityHint
	hasHint   bool
	connected bool
	closed    bool
	// gen changes on Close so a dial that finishes afterwards is discarded.
	gen uint64
}

// Ensure returns the live gateway, dialing it on first use. The shared dial
// does not inherit the caller's cancellation; a caller that gives up stops
// waiting without failing the others.
func (m *ConnectionManager) Ensure(ctx context.Context) (Gateway, error) {
	m.mu.Lock()
	gw := m.gw
	m.mu.Unlock()
	if gw != nil {
		return gw, nil
	}
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan("dial", func() (any, error) {
		return m.dial(shared)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Gateway), nil
	}
}

func (m *ConnectionManager) dial(ctx context.Context) (Gateway, error) {
	m.mu.Lock()
	if m.gw != nil {
		gw := m.gw
		m.mu.Unlock()
		return gw, nil
	}
	m.closed = false
	gen := m.gen
	m.mu.Unlock()

	if m.Tokens == nil || m.Dialer == nil {
		return nil, errors.New("chat: connection manager is not configured")
	}
	token, err := m.Tokens.AccessToken(ctx)
	token = strings.TrimSpace(token)
	switch {
	case errors.Is(err, ErrNotAuthenticated), err == nil && token == "":
		notify(m.Notifier, LevelError, titleLoginRequired, detailLoginRequired)
		return nil, ErrNotAuthenticated
	case err != nil:
		notify(m.Notifier, LevelError, titleConnectFailed, describe(err))
		return nil, fmt.Errorf("chat: resolve token: %w", err)
	}

	hint, hintErr := domainauth.DecodeIdentityHint(token)
	if hintErr != nil {
		m.log().Warn("access token carries no usable identity", "error", hintErr)
	}

	gw, err := m.Dialer.Dial(ctx, token, m.transportEvents())
	if err != nil {
		m.log().Error("chat connect failed", "error", err)
		notify(m.Notifier, LevelError, titleConnectFailed, describe(err))
		return nil, err
	}

	m.mu.Lock()
	if m.closed || m.gen != gen {
		m.mu.Unlock()
		m.log().Debug("discarding gateway dialed during close")
		_ = gw.Close()
		return nil, ErrNotConnected
	}
	m.gw = gw
	m.connected = true
	m.hint, m.hasHint = hint, hintErr == nil
	m.mu.Unlock()
	m.log().Info("chat connected", "user_id", hint.UserID)
	return gw, nil
}

func (m *ConnectionManager) transportEvents() Events {
	return Events{
		OnMessage: func(msg domainchat.Message) {
			if m.isClosed() {
				return
			}
			if m.Events.OnMessage != nil {
				m.Events.OnMessage(msg)
			}
		},
		OnDisconnect: func(err error) {
			if m.isClosed() {
				return
			}
			m.setConnected(false)
			m.log().Warn("chat disconnected", "error", err)
			notify(m.Notifier, LevelError, titleDisconnected, "Trying to reconnect.")
			if m.Events.OnDisconnect != nil {
				m.Events.OnDisconnect(err)
			}
		},
		OnReconnect: func() {
			if m.isClosed() {
				return
			}
			m.setConnected(true)
			m.log().Info("chat reconnected")
			notify(m.Notifier, LevelInfo, titleReconnected, "")
			if m.Events.OnReconnect != nil {
				m.Events.OnReconnect()
			}
		},
		OnClosed: func(err error) {
			if m.isClosed() {
				return
			}
			m.mu.Lock()
			m.gw = nil
			m.connected = false
			m.mu.Unlock()
			m.log().Error("chat connection closed", "error", err)
			notify(m.Notifier, LevelError, titleDisconnected, describe(err))
			if m.Events.OnClosed != nil {
				m.Events.OnClosed(err)
			}
		},
	}
}

// Current returns the gateway without dialing.
func (m *ConnectionManager) Current() Gateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gw
}

// Identity returns the unverified identity of the connected user.
func (m *ConnectionManager) Identity() (domainauth.IdentityHint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hint, m.hasHint
}

// Connected reports whether a gateway exists and the transport is up.
func (m *ConnectionManager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gw != nil && m.connected
}

// Ready is Connected as an error, for readiness probes.
func (m *ConnectionManager) Ready() error {
	if !m.Connected() {
		return ErrNotConnected
	}
	return nil
}

// Close releases the gateway. Events that arrive afterwards are dropped.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	gw := m.gw
	m.gw = nil
	m.connected = false
	m.closed = true
	m.gen++
	m.mu.Unlock()
	if gw == nil {
		return nil
	}
	return gw.Close()
}

func (m *ConnectionManager) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

func (m *ConnectionManager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *ConnectionManager) log() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
