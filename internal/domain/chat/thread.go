package chat

import (
	"sort"
	"time"
)

// Thread holds the messages of one conversation ordered by CreatedAt, with at
// most one entry per message id. Messages with equal timestamps keep arrival
// order. The zero value is an empty thread.
type Thread struct {
	items []Message
	ids   map[string]struct{}
}

// NewThreadFromHistory builds a thread from a history page, which the server
// returns newest first.
func NewThreadFromHistory(newestFirst []Message) *Thread {
	t := &Thread{}
	for i := len(newestFirst) - 1; i >= 0; i-- {
		t.Merge(newestFirst[i])
	}
	return t
}

// Merge inserts m unless a message with the same id is already present.
// It reports whether the thread changed.
func (t *Thread) Merge(m Message) bool {
	if m.ID == "" {
		return false
	}
	if t.ids == nil {
		t.ids = make(map[string]struct{})
	}
	if _, ok := t.ids[m.ID]; ok {
		return false
	}
	t.ids[m.ID] = struct{}{}
	at := sort.Search(len(t.items), func(i int) bool {
		return t.items[i].CreatedAt.After(m.CreatedAt)
	})
	t.items = append(t.items, Message{})
	copy(t.items[at+1:], t.items[at:])
	t.items[at] = m
	return true
}

func (t *Thread) Contains(id string) bool {
	_, ok := t.ids[id]
	return ok
}

func (t *Thread) Len() int {
	return len(t.items)
}

// Messages returns a copy of the ordered messages.
func (t *Thread) Messages() []Message {
	return append([]Message(nil), t.items...)
}

// Last returns the newest message.
func (t *Thread) Last() (Message, bool) {
	if len(t.items) == 0 {
		return Message{}, false
	}
	return t.items[len(t.items)-1], true
}

// DayGroup is a run of consecutive messages sent on the same calendar day.
type DayGroup struct {
	Day      time.Time
	Messages []Message
}

// DayGroups splits the thread at day boundaries in loc.
func (t *Thread) DayGroups(loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}
	var groups []DayGroup
	for _, m := range t.items {
		y, mo, d := m.CreatedAt.In(loc).Date()
		day := time.Date(y, mo, d, 0, 0, 0, 0, loc)
		if n := len(groups); n > 0 && groups[n-1].Day.Equal(day) {
			groups[n-1].Messages = append(groups[n-1].Messages, m)
			continue
		}
		groups = append(groups, DayGroup{Day: day, Messages: []Message{m}})
	}
	return groups
}

// DayLabel renders the separator text for a day relative to now.
func DayLabel(day, now time.Time) string {
	y, m, d := now.In(day.Location()).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	case day.Year() == today.Year():
		return day.Format("Mon, Jan 2")
	default:
		return day.Format("Jan 2, 2006")
	}
}
