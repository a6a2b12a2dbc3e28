package chat

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	domainchat "recyclemart/internal/domain/chat"
)

// ConversationStore keeps the latest conversation list fetched from the
// server. A refresh replaces the list as a whole; a failed refresh keeps the
// previous one.
type ConversationStore struct {
	Notifier Notifier
	Logger   *slog.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	items  []domainchat.ConversationSummary
	loaded bool
}

// Refresh fetches the list. Calls made while a refresh is running share its
// result; a caller whose ctx ends stops waiting without canceling the fetch.
func (s *ConversationStore) Refresh(ctx context.Context, gw Gateway) ([]domainchat.ConversationSummary, error) {
	if gw == nil {
		return s.List(), ErrNotConnected
	}
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan("refresh", func() (any, error) {
		items, err := gw.ListConversations(shared)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.items = append([]domainchat.ConversationSummary(nil), items...)
		s.loaded = true
		s.mu.Unlock()
		return items, nil
	})
	var (
		v   any
		err error
	)
	select {
	case <-ctx.Done():
		return s.List(), ctx.Err()
	case res := <-ch:
		v, err = res.Val, res.Err
	}
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("conversation list refresh failed", "error", err)
		}
		notify(s.Notifier, LevelError, titleListFailed, describe(err))
		return s.List(), err
	}
	return append([]domainchat.ConversationSummary(nil), v.([]domainchat.ConversationSummary)...), nil
}

// List returns a copy of the current list in server order.
func (s *ConversationStore) List() []domainchat.ConversationSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domainchat.ConversationSummary(nil), s.items...)
}

// Loaded reports whether at least one refresh succeeded.
func (s *ConversationStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *ConversationStore) Find(id string) (domainchat.ConversationSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return domainchat.ConversationSummary{}, false
}

// First returns the top entry of the list.
func (s *ConversationStore) First() (domainchat.ConversationSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.items) == 0 {
		return domainchat.ConversationSummary{}, false
	}
	return s.items[0], true
}

// Filter applies the search box query to the current list.
func (s *ConversationStore) Filter(query string) []domainchat.ConversationSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domainchat.FilterConversations(s.items, query)
}
