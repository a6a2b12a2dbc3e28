package messaging

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"recyclemart/internal/app/dto"
)

const (
	kindRequest      = "request"
	kindAck          = "ack"
	kindEvent        = "event"
	kindConnect      = "connect"
	kindConnectError = "connect_error"
)

// frame is the JSON text message exchanged over the socket. Requests carry an
// id that the matching ack echoes back.
type frame struct {
	Kind  string          `json:"kind"`
	ID    string          `json:"id,omitempty"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var (
	ErrURLRequired      = errors.New("messaging: socket url is required")
	ErrNotConnected     = errors.New("messaging: not connected")
	ErrClosed           = errors.New("messaging: connection closed")
	ErrDisconnected     = errors.New("messaging: connection lost before acknowledgment")
	ErrAckTimeout       = errors.New("messaging: acknowledgment timed out")
	ErrProtocol         = errors.New("messaging: unexpected frame")
	ErrNoConversationID = errors.New("messaging: server returned no conversation id")
)

// AckError is a failed acknowledgment, either sent by the server or
// synthesized when no acknowledgment arrived in time.
type AckError struct {
	Event   string
	Message string
	Sources []dto.ErrorSource
	Timeout bool
}

func (e *AckError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("messaging: %s: no acknowledgment", e.Event)
	}
	return fmt.Sprintf("messaging: %s rejected: %s", e.Event, e.Message)
}

func (e *AckError) Unwrap() error {
	if e.Timeout {
		return ErrAckTimeout
	}
	return nil
}

// ServerMessage is the text shown to the user.
func (e *AckError) ServerMessage() string {
	return e.Message
}

// ConnectError means the server refused the connection, usually because the
// token was rejected. Reconnecting with the same token will not help.
type ConnectError struct {
	Status  int
	Message string
}

func (e *ConnectError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("messaging: connect refused (%d): %s", e.Status, e.Message)
	}
	return "messaging: connect refused: " + e.Message
}

func (e *ConnectError) ServerMessage() string {
	return e.Message
}

// endpoint builds the websocket URL of the namespace with the token in the
// query.
func endpoint(base, namespace, token string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", ErrURLRequired
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("messaging: parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("messaging: unsupported url scheme %q", u.Scheme)
	}
	if namespace != "" {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(namespace, "/")
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func envelopeMessage(raw []byte) string {
	var env dto.Envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return strings.TrimSpace(string(raw))
}
