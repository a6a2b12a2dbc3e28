package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainchat "recyclemart/internal/domain/chat"
)

// DefaultHistoryLimit is the page size of the initial history load.
const DefaultHistoryLimit = 50

// ThreadStore holds the messages of the active conversation. Each activation
// starts a new epoch; results of loads from an older epoch are dropped.
type ThreadStore struct {
	Limit    int
	Notifier Notifier
	Logger   *slog.Logger

	mu       sync.Mutex
	me       string
	activeID string
	epoch    uint64
	loading  bool
	failed   bool
	thread   *domainchat.Thread
}

// SetIdentity sets the user id used to mark own messages.
func (s *ThreadStore) SetIdentity(userID string) {
	s.mu.Lock()
	s.me = userID
	s.mu.Unlock()
}

// Activate makes id the active conversation, discards the previous thread,
// then joins the room and loads history concurrently. Activating the already
// active conversation is a no-op and reports false, unless its last history
// load failed; then the load is retried and true is reported.
func (s *ThreadStore) Activate(ctx context.Context, gw Gateway, id string) (bool, error) {
	if id == "" {
		return false, ErrNoConversation
	}
	s.mu.Lock()
	if id == s.activeID {
		if !s.failed || s.loading {
			s.mu.Unlock()
			return false, nil
		}
		epoch := s.retry()
		s.mu.Unlock()
		return true, s.load(ctx, gw, id, epoch)
	}
	epoch := s.begin(id)
	s.mu.Unlock()
	return true, s.load(ctx, gw, id, epoch)
}

// Reload rejoins and refetches the active conversation, for example after the
// transport reconnected.
func (s *ThreadStore) Reload(ctx context.Context, gw Gateway) error {
	s.mu.Lock()
	id := s.activeID
	if id == "" {
		s.mu.Unlock()
		return nil
	}
	epoch := s.retry()
	s.mu.Unlock()
	return s.load(ctx, gw, id, epoch)
}

// Failed reports whether the last history load of the active conversation
// failed.
func (s *ThreadStore) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

func (s *ThreadStore) begin(id string) uint64 {
	s.epoch++
	s.activeID = id
	s.loading = true
	s.failed = false
	s.thread = &domainchat.Thread{}
	return s.epoch
}

// retry starts a new epoch for the active conversation, keeping its messages.
func (s *ThreadStore) retry() uint64 {
	s.epoch++
	s.loading = true
	s.failed = false
	if s.thread == nil {
		s.thread = &domainchat.Thread{}
	}
	return s.epoch
}

func (s *ThreadStore) load(ctx context.Context, gw Gateway, id string, epoch uint64) error {
	if gw == nil {
		s.finish(epoch)
		return ErrNotConnected
	}
	var (
		wg      sync.WaitGroup
		joinErr error
		histErr error
		history []domainchat.Message
	)
	started := time.Now()
	wg.Add(2)
	go func() {
		defer wg.Done()
		joinErr = gw.JoinConversation(ctx, id)
	}()
	go func() {
		defer wg.Done()
		history, histErr = gw.ListMessages(ctx, id, s.limit())
	}()
	wg.Wait()

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		s.log().Debug("dropping stale thread load", "conversation_id", id)
		return nil
	}
	s.loading = false
	s.failed = histErr != nil
	if histErr == nil {
		valid := history[:0]
		for _, m := range history {
			if err := m.Validate(); err != nil {
				s.log().Debug("dropping invalid history message", "conversation_id", id, "message_id", m.ID, "error", err)
				continue
			}
			valid = append(valid, s.mark(m))
		}
		history = valid
		loaded := domainchat.NewThreadFromHistory(history)
		for _, pushed := range s.thread.Messages() {
			loaded.Merge(pushed)
		}
		s.thread = loaded
	}
	s.mu.Unlock()

	if joinErr != nil {
		s.log().Warn("join conversation failed", "conversation_id", id, "error", joinErr)
		notify(s.Notifier, LevelError, titleJoinFailed, describe(joinErr))
	}
	if histErr != nil {
		s.log().Warn("load history failed", "conversation_id", id, "error", histErr)
		notify(s.Notifier, LevelError, titleHistoryFailed, describe(histErr))
	} else {
		s.log().Debug("thread loaded", "conversation_id", id, "messages", len(history), "duration", time.Since(started))
	}
	return errors.Join(joinErr, histErr)
}

func (s *ThreadStore) finish(epoch uint64) {
	s.mu.Lock()
	if epoch == s.epoch {
		s.loading = false
		s.failed = true
	}
	s.mu.Unlock()
}

// MergeIncoming adds a pushed or acknowledged message to the active thread.
// Messages of other conversations are not merged. It reports whether the
// thread changed.
func (s *ThreadStore) MergeIncoming(m domainchat.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == "" || s.thread == nil {
		return false
	}
	if m.ConversationID != "" && m.ConversationID != s.activeID {
		return false
	}
	if err := m.Validate(); err != nil {
		s.log().Debug("dropping invalid message", "conversation_id", s.activeID, "message_id", m.ID, "error", err)
		return false
	}
	return s.thread.Merge(s.mark(m))
}

// Active returns the active conversation id.
func (s *ThreadStore) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Loading reports whether the active history is still being fetched.
func (s *ThreadStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Messages returns the ordered messages of the active thread.
func (s *ThreadStore) Messages() []domainchat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.thread == nil {
		return nil
	}
	return s.thread.Messages()
}

// Reset clears the active conversation.
func (s *ThreadStore) Reset() {
	s.mu.Lock()
	s.epoch++
	s.activeID = ""
	s.loading = false
	s.failed = false
	s.thread = nil
	s.mu.Unlock()
}

func (s *ThreadStore) mark(m domainchat.Message) domainchat.Message {
	m.FromMe = s.me != "" && m.SenderID == s.me
	return m
}

func (s *ThreadStore) limit() int {
	if s.Limit > 0 {
		return s.Limit
	}
	return DefaultHistoryLimit
}

func (s *ThreadStore) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
