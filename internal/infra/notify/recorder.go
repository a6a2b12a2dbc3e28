package notify

import (
	"sync"
	"time"

	chatapp "recyclemart/internal/app/chat"
)

const defaultCapacity = 100

// Recorder keeps the most recent notifications in a ring buffer.
type Recorder struct {
	mu    sync.Mutex
	items []chatapp.Notification
	next  int
	full  bool
	now   func() time.Time
}

func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Recorder{items: make([]chatapp.Notification, capacity), now: time.Now}
}

func (r *Recorder) Notify(n chatapp.Notification) {
	if n.At.IsZero() {
		n.At = r.now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[r.next] = n
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
}

// Recent returns stored notifications, oldest first.
func (r *Recorder) Recent() []chatapp.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]chatapp.Notification(nil), r.items[:r.next]...)
	}
	out := make([]chatapp.Notification, 0, len(r.items))
	out = append(out, r.items[r.next:]...)
	return append(out, r.items[:r.next]...)
}

// Fanout delivers every notification to each non-nil notifier in order.
type Fanout []chatapp.Notifier

func (f Fanout) Notify(n chatapp.Notification) {
	for _, target := range f {
		if target != nil {
			target.Notify(n)
		}
	}
}

var (
	_ chatapp.Notifier = (*Recorder)(nil)
	_ chatapp.Notifier = Fanout(nil)
)
