package chat

import (
	"context"
	"errors"
	"time"

	domainauth "recyclemart/internal/domain/auth"
	domainchat "recyclemart/internal/domain/chat"
)

var (
	ErrNotAuthenticated = domainauth.ErrNotAuthenticated
	ErrNotConnected     = errors.New("chat: not connected")
	ErrNoConversation   = errors.New("chat: no active conversation")
	ErrNotImage         = errors.New("chat: only image files can be attached")
	ErrNothingPicked    = errors.New("chat: no attachment picked")
	ErrBusy             = errors.New("chat: another send is in progress")
)

// Gateway is a live chat connection. Every call waits for the server's
// acknowledgment or fails.
type Gateway interface {
	ListConversations(ctx context.Context) ([]domainchat.ConversationSummary, error)
	JoinConversation(ctx context.Context, conversationID string) error
	UpsertConversation(ctx context.Context, adID, participantID string) (string, error)
	ListMessages(ctx context.Context, conversationID string, limit int) ([]domainchat.Message, error)
	SendMessage(ctx context.Context, conversationID string, draft domainchat.Draft) (domainchat.Message, error)
	Close() error
}

// Events receives what the server pushes outside of request/ack pairs.
// Messages arrive without FromMe set. OnDisconnect fires on every lost
// connection, OnReconnect after the transport restored it, and OnClosed once
// the transport gave up for good.
type Events struct {
	OnMessage    func(domainchat.Message)
	OnDisconnect func(error)
	OnReconnect  func()
	OnClosed     func(error)
}

// Dialer opens a Gateway authenticated with an access token.
type Dialer interface {
	Dial(ctx context.Context, token string, events Events) (Gateway, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, token string, events Events) (Gateway, error)

func (f DialerFunc) Dial(ctx context.Context, token string, events Events) (Gateway, error) {
	return f(ctx, token, events)
}

// TokenSource resolves the current access token. It returns
// ErrNotAuthenticated when the user has not signed in.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// LocalFile is a file picked from disk for attaching.
type LocalFile struct {
	Path string
	Name string
	MIME string
	Size int64
}

// ImageStore uploads an image and returns its public URL.
type ImageStore interface {
	UploadImage(ctx context.Context, token string, file LocalFile) (string, error)
}

type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// Notification is a transient message for the user.
type Notification struct {
	Level  Level
	Title  string
	Detail string
	At     time.Time
}

type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

func notify(n Notifier, level Level, title, detail string) {
	if n == nil {
		return
	}
	n.Notify(Notification{Level: level, Title: title, Detail: detail, At: time.Now()})
}
