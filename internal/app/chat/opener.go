package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrSelfChat = errors.New("chat: cannot open a conversation with yourself")

// OpenerState is the latch of the auto-opener.
type OpenerState int

const (
	OpenerNotAttempted OpenerState = iota
	OpenerInFlight
	OpenerDone
)

func (s OpenerState) String() string {
	switch s {
	case OpenerInFlight:
		return "in_flight"
	case OpenerDone:
		return "done"
	default:
		return "not_attempted"
	}
}

// AutoOpener turns a deep link into a conversation id by asking the server
// to get or create the conversation. It issues at most one request per
// arming, however often it is triggered.
type AutoOpener struct {
	Notifier Notifier
	Logger   *slog.Logger

	mu    sync.Mutex
	state OpenerState
}

func (o *AutoOpener) State() OpenerState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Rearm allows another attempt, used when the view navigates to a new link.
func (o *AutoOpener) Rearm() {
	o.mu.Lock()
	if o.state != OpenerInFlight {
		o.state = OpenerNotAttempted
	}
	o.mu.Unlock()
}

// Open runs the upsert when loc carries a complete deep link, a gateway is
// connected and the user id is known. It returns the conversation id, or ""
// when nothing was attempted. The deep link params are stripped from loc
// after an attempt whatever its outcome; a failed attempt re-arms the latch.
func (o *AutoOpener) Open(ctx context.Context, gw Gateway, me string, loc *Location) (string, error) {
	if gw == nil || me == "" || loc == nil {
		return "", nil
	}
	link := loc.DeepLink()
	if !link.Complete() {
		return "", nil
	}

	o.mu.Lock()
	if o.state != OpenerNotAttempted {
		o.mu.Unlock()
		return "", nil
	}
	o.state = OpenerInFlight
	o.mu.Unlock()

	if link.ParticipantID == me {
		loc.StripDeepLink()
		o.setState(OpenerNotAttempted)
		notify(o.Notifier, LevelInfo, titleSelfChat, detailSelfChat)
		return "", ErrSelfChat
	}

	id, err := gw.UpsertConversation(ctx, link.AdID, link.ParticipantID)
	loc.StripDeepLink()
	if err != nil {
		o.setState(OpenerNotAttempted)
		if o.Logger != nil {
			o.Logger.Warn("open conversation failed", "ad_id", link.AdID, "participant_id", link.ParticipantID, "error", err)
		}
		notify(o.Notifier, LevelError, titleOpenFailed, describe(err))
		return "", err
	}
	o.setState(OpenerDone)
	if o.Logger != nil {
		o.Logger.Info("conversation opened from link", "conversation_id", id, "ad_id", link.AdID)
	}
	return id, nil
}

func (o *AutoOpener) setState(s OpenerState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}
