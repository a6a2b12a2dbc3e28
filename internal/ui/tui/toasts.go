package tui

import (
	"time"

	chatapp "recyclemart/internal/app/chat"
)

const toastTTL = 6 * time.Second

// Toasts carries notifications from the session into the UI loop. Notices
// are dropped when the UI falls behind.
type Toasts struct {
	ch  chan chatapp.Notification
	now func() time.Time
}

func NewToasts() *Toasts {
	return &Toasts{ch: make(chan chatapp.Notification, 16), now: time.Now}
}

func (t *Toasts) Notify(n chatapp.Notification) {
	if n.At.IsZero() {
		n.At = t.now()
	}
	select {
	case t.ch <- n:
	default:
	}
}

// C is the notification feed.
func (t *Toasts) C() <-chan chatapp.Notification {
	return t.ch
}

var _ chatapp.Notifier = (*Toasts)(nil)
