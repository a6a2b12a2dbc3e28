package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	domainauth "recyclemart/internal/domain/auth"
	domainchat "recyclemart/internal/domain/chat"
)

// ChangeKind names the part of the session that changed.
type ChangeKind int

const (
	ChangeConnection ChangeKind = iota
	ChangeConversations
	ChangeActive
	ChangeThread
	ChangeComposer
	ChangeLocation
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeConnection:
		return "connection"
	case ChangeConversations:
		return "conversations"
	case ChangeActive:
		return "active"
	case ChangeThread:
		return "thread"
	case ChangeComposer:
		return "composer"
	default:
		return "location"
	}
}

type Change struct {
	Kind ChangeKind
}

// Snapshot is the complete view state of a session at one point in time.
type Snapshot struct {
	Connected     bool
	Identity      domainauth.IdentityHint
	Query         string
	Conversations []domainchat.ConversationSummary
	ActiveID      string
	Active        *domainchat.ConversationSummary
	Messages      []domainchat.Message
	Loading       bool
	Composer      ComposerView
	Location      string
	Opener        OpenerState
}

// SessionDeps are the collaborators of a Session.
type SessionDeps struct {
	Dialer       Dialer
	Tokens       TokenSource
	Images       ImageStore
	Notifier     Notifier
	Logger       *slog.Logger
	HistoryLimit int
	Location     *Location
}

// Session is one chat view: a connection, the conversation list, the active
// thread, the deep link opener and the composer. All background work stops
// when the session is closed.
type Session struct {
	Conn          *ConnectionManager
	Conversations *ConversationStore
	Threads       *ThreadStore
	Opener        *AutoOpener
	Composer      *Composer
	Location      *Location
	Logger        *slog.Logger

	life   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	query   string
	subs    map[int]chan Change
	nextSub int
	closed  bool
}

func NewSession(deps SessionDeps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := deps.Location
	if loc == nil {
		loc, _ = NewLocation("/chat")
	}
	life, cancel := context.WithCancel(context.Background())
	s := &Session{
		Conn: &ConnectionManager{
			Dialer:   deps.Dialer,
			Tokens:   deps.Tokens,
			Notifier: deps.Notifier,
			Logger:   logger.With("component", "connection"),
		},
		Conversations: &ConversationStore{Notifier: deps.Notifier, Logger: logger},
		Threads: &ThreadStore{
			Limit:    deps.HistoryLimit,
			Notifier: deps.Notifier,
			Logger:   logger.With("component", "thread"),
		},
		Opener:   &AutoOpener{Notifier: deps.Notifier, Logger: logger},
		Location: loc,
		Logger:   logger,
		life:     life,
		cancel:   cancel,
		subs:     make(map[int]chan Change),
	}
	s.Composer = &Composer{
		Send: s.Send,
		Uploader: &AttachmentUploader{
			Store:    deps.Images,
			Tokens:   deps.Tokens,
			Notifier: deps.Notifier,
			Logger:   logger,
		},
		Notifier: deps.Notifier,
		Logger:   logger,
		OnChange: func() { s.emit(ChangeComposer) },
	}
	s.Conn.Events = Events{
		OnMessage:    s.handleMessage,
		OnDisconnect: func(error) { s.emit(ChangeConnection) },
		OnReconnect:  s.handleReconnect,
		OnClosed:     func(error) { s.emit(ChangeConnection) },
	}
	return s
}

// Start connects, then either opens the deep-linked conversation or loads the
// list and activates its first entry.
func (s *Session) Start(ctx context.Context) error {
	gw, err := s.Conn.Ensure(ctx)
	s.emit(ChangeConnection)
	if err != nil {
		return err
	}
	me := s.me()
	s.Threads.SetIdentity(me)

	if s.Location.DeepLink().Complete() {
		if id, err := s.autoOpen(ctx, gw); err == nil && id != "" {
			return nil
		}
	}
	s.refreshList(ctx, gw)
	s.activateFirst(ctx, gw)
	return nil
}

// Open navigates to a deep link and runs the opener for it.
func (s *Session) Open(ctx context.Context, link domainchat.DeepLink) (string, error) {
	if !link.Complete() {
		return "", ErrNoConversation
	}
	s.Location.Navigate(link)
	s.Opener.Rearm()
	s.emit(ChangeLocation)
	gw, err := s.Conn.Ensure(ctx)
	if err != nil {
		return "", err
	}
	s.Threads.SetIdentity(s.me())
	return s.autoOpen(ctx, gw)
}

func (s *Session) autoOpen(ctx context.Context, gw Gateway) (string, error) {
	id, err := s.Opener.Open(ctx, gw, s.me(), s.Location)
	s.emit(ChangeLocation)
	if err != nil || id == "" {
		return "", err
	}
	s.activate(ctx, gw, id)
	s.refreshList(ctx, gw)
	return id, nil
}

// Select activates a conversation picked from the list.
func (s *Session) Select(ctx context.Context, id string) error {
	gw, err := s.Conn.Ensure(ctx)
	if err != nil {
		return err
	}
	return s.activate(ctx, gw, id)
}

// Refresh reloads the conversation list, activates its first entry when
// nothing is active and retries a failed history load.
func (s *Session) Refresh(ctx context.Context) error {
	gw, err := s.Conn.Ensure(ctx)
	if err != nil {
		return err
	}
	if _, err := s.refreshList(ctx, gw); err != nil {
		return err
	}
	if s.Threads.Active() == "" {
		s.activateFirst(ctx, gw)
		return nil
	}
	if s.Threads.Failed() {
		err := s.Threads.Reload(ctx, gw)
		s.emit(ChangeThread)
		return err
	}
	return nil
}

// Send delivers a draft to the active conversation and merges the
// acknowledged message.
func (s *Session) Send(ctx context.Context, draft domainchat.Draft) (domainchat.Message, error) {
	gw, err := s.Conn.Ensure(ctx)
	if err != nil {
		return domainchat.Message{}, err
	}
	id := s.Threads.Active()
	if id == "" {
		return domainchat.Message{}, ErrNoConversation
	}
	msg, err := gw.SendMessage(ctx, id, draft)
	if err != nil {
		return domainchat.Message{}, err
	}
	if msg.ConversationID == "" {
		msg.ConversationID = id
	}
	if s.Threads.MergeIncoming(msg) {
		s.emit(ChangeThread)
	}
	s.background(func(ctx context.Context) {
		if gw := s.Conn.Current(); gw != nil {
			s.refreshList(ctx, gw)
		}
	})
	return msg, nil
}

// SendImage uploads file and sends it to the active conversation without
// going through the composer dialog.
func (s *Session) SendImage(ctx context.Context, file LocalFile) (domainchat.Message, error) {
	if s.Threads.Active() == "" {
		return domainchat.Message{}, ErrNoConversation
	}
	if s.Composer.Uploader == nil {
		return domainchat.Message{}, errors.New("chat: uploader is not configured")
	}
	url, err := s.Composer.Uploader.Upload(ctx, file)
	if err != nil {
		return domainchat.Message{}, err
	}
	draft, err := domainchat.NewDraft("", &domainchat.Attachment{
		Type: domainchat.AttachmentImage,
		URL:  url,
		Name: file.Name,
		Size: file.Size,
	})
	if err != nil {
		return domainchat.Message{}, err
	}
	return s.Send(ctx, draft)
}

// SetQuery filters the conversation list shown in snapshots.
func (s *Session) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
	s.emit(ChangeConversations)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	query := s.query
	s.mu.Unlock()

	hint, _ := s.Conn.Identity()
	snap := Snapshot{
		Connected:     s.Conn.Connected(),
		Identity:      hint,
		Query:         query,
		Conversations: s.Conversations.Filter(query),
		ActiveID:      s.Threads.Active(),
		Messages:      s.Threads.Messages(),
		Loading:       s.Threads.Loading(),
		Composer:      s.Composer.View(),
		Location:      s.Location.String(),
		Opener:        s.Opener.State(),
	}
	if snap.ActiveID != "" {
		if c, ok := s.Conversations.Find(snap.ActiveID); ok {
			snap.Active = &c
		}
	}
	return snap
}

// Subscribe returns a feed of changes. Changes are dropped for slow
// subscribers; read a Snapshot after each one. The returned func
// unsubscribes.
func (s *Session) Subscribe() (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Change, 32)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

// Close stops background work, drops the connection and ends all
// subscriptions.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	err := s.Conn.Close()
	s.wg.Wait()

	s.mu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.mu.Unlock()
	return err
}

func (s *Session) activate(ctx context.Context, gw Gateway, id string) error {
	switched, err := s.Threads.Activate(ctx, gw, id)
	if switched {
		s.emit(ChangeActive)
		s.emit(ChangeThread)
	}
	return err
}

func (s *Session) activateFirst(ctx context.Context, gw Gateway) {
	if s.Threads.Active() != "" {
		return
	}
	if first, ok := s.Conversations.First(); ok {
		_ = s.activate(ctx, gw, first.ID)
	}
}

func (s *Session) refreshList(ctx context.Context, gw Gateway) ([]domainchat.ConversationSummary, error) {
	items, err := s.Conversations.Refresh(ctx, gw)
	s.emit(ChangeConversations)
	return items, err
}

func (s *Session) handleMessage(m domainchat.Message) {
	if s.Threads.MergeIncoming(m) {
		s.emit(ChangeThread)
	}
	s.background(func(ctx context.Context) {
		if gw := s.Conn.Current(); gw != nil {
			s.refreshList(ctx, gw)
		}
	})
}

func (s *Session) handleReconnect() {
	s.emit(ChangeConnection)
	s.background(func(ctx context.Context) {
		gw := s.Conn.Current()
		if gw == nil {
			return
		}
		if _, err := s.refreshList(ctx, gw); err == nil && s.Threads.Active() == "" {
			s.activateFirst(ctx, gw)
			return
		}
		if err := s.Threads.Reload(ctx, gw); err == nil {
			s.emit(ChangeThread)
		}
	})
}

func (s *Session) background(fn func(ctx context.Context)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		fn(s.life)
	}()
}

func (s *Session) emit(kind ChangeKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- Change{Kind: kind}:
		default:
		}
	}
}

func (s *Session) me() string {
	hint, ok := s.Conn.Identity()
	if !ok {
		return ""
	}
	return hint.UserID
}
