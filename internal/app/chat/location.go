package chat

import (
	"net/url"
	"sync"

	domainchat "recyclemart/internal/domain/chat"
)

// Location is the address of the chat view. Replacing its query rewrites the
// current entry instead of adding a new one.
type Location struct {
	mu sync.Mutex
	u  url.URL
}

// NewLocation parses raw, which may be a full URL or a bare path with query
// such as "/chat?adId=A1&participantId=U2".
func NewLocation(raw string) (*Location, error) {
	if raw == "" {
		raw = "/chat"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &Location{u: *u}, nil
}

func (l *Location) Query() url.Values {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.u.Query()
}

// DeepLink returns the conversation request carried by the query.
func (l *Location) DeepLink() domainchat.DeepLink {
	return domainchat.ParseDeepLink(l.Query())
}

// ReplaceQuery swaps the query string in place.
func (l *Location) ReplaceQuery(q url.Values) {
	l.mu.Lock()
	l.u.RawQuery = q.Encode()
	l.mu.Unlock()
}

// Navigate points the location at a new deep link, keeping other params.
func (l *Location) Navigate(link domainchat.DeepLink) {
	q := l.Query()
	for k, v := range link.Query() {
		q[k] = v
	}
	l.ReplaceQuery(q)
}

// StripDeepLink removes the ad and participant params.
func (l *Location) StripDeepLink() {
	q := l.Query()
	q.Del(domainchat.ParamAdID)
	q.Del(domainchat.ParamParticipantID)
	l.ReplaceQuery(q)
}

func (l *Location) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.u.String()
}
