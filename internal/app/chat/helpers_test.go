package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domainchat "recyclemart/internal/domain/chat"
)

var t0 = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"_id": userID, "name": "Test"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

type recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

func (r *recorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.items))
	for _, n := range r.items {
		out = append(out, n.Title)
	}
	return out
}

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) AccessToken(context.Context) (string, error) {
	return s.token, s.err
}

type serverErr struct{ msg string }

func (e serverErr) Error() string         { return "server: " + e.msg }
func (e serverErr) ServerMessage() string { return e.msg }

type mockImageStore struct {
	mock.Mock
}

func (m *mockImageStore) UploadImage(ctx context.Context, token string, file LocalFile) (string, error) {
	args := m.Called(ctx, token, file)
	return args.String(0), args.Error(1)
}

// fakeGateway answers like the chat server would, from canned data.
type fakeGateway struct {
	mu sync.Mutex

	conversations [][]domainchat.ConversationSummary
	listErr       error
	listCalls     int

	history     map[string][]domainchat.Message
	historyErr  map[string]error
	historyGate map[string]chan struct{}
	limits      []int

	joinErr error
	joined  []string

	upsertID  string
	upsertErr error
	upserts   []domainchat.DeepLink

	sendErr error
	sent    []domainchat.Draft
	sender  string

	closed bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		history:     map[string][]domainchat.Message{},
		historyErr:  map[string]error{},
		historyGate: map[string]chan struct{}{},
		sender:      "U1",
	}
}

func (g *fakeGateway) ListConversations(ctx context.Context) ([]domainchat.ConversationSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	if g.listErr != nil {
		return nil, g.listErr
	}
	if len(g.conversations) == 0 {
		return nil, nil
	}
	idx := g.listCalls - 1
	if idx >= len(g.conversations) {
		idx = len(g.conversations) - 1
	}
	return append([]domainchat.ConversationSummary(nil), g.conversations[idx]...), nil
}

func (g *fakeGateway) JoinConversation(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.joined = append(g.joined, id)
	return g.joinErr
}

func (g *fakeGateway) UpsertConversation(ctx context.Context, adID, participantID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.upserts = append(g.upserts, domainchat.DeepLink{AdID: adID, ParticipantID: participantID})
	return g.upsertID, g.upsertErr
}

func (g *fakeGateway) ListMessages(ctx context.Context, id string, limit int) ([]domainchat.Message, error) {
	g.mu.Lock()
	gate := g.historyGate[id]
	g.limits = append(g.limits, limit)
	g.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.historyErr[id]; err != nil {
		return nil, err
	}
	return append([]domainchat.Message(nil), g.history[id]...), nil
}

func (g *fakeGateway) SendMessage(ctx context.Context, id string, draft domainchat.Draft) (domainchat.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return domainchat.Message{}, g.sendErr
	}
	g.sent = append(g.sent, draft)
	return domainchat.Message{
		ID:             fmt.Sprintf("sent-%d", len(g.sent)),
		ConversationID: id,
		SenderID:       g.sender,
		Text:           draft.Text,
		Attachment:     draft.Attachment,
		CreatedAt:      at(100 + len(g.sent)),
	}, nil
}

func (g *fakeGateway) Close() error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	return nil
}

func (g *fakeGateway) block(id string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.historyGate[id] = ch
	return ch
}

func (g *fakeGateway) joinedRooms() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.joined...)
}

func (g *fakeGateway) upsertCalls() []domainchat.DeepLink {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domainchat.DeepLink(nil), g.upserts...)
}

func (g *fakeGateway) sentDrafts() []domainchat.Draft {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domainchat.Draft(nil), g.sent...)
}

func (g *fakeGateway) listCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.listCalls
}

// fakeDialer hands out one gateway and captures the transport events.
type fakeDialer struct {
	mu     sync.Mutex
	gw     *fakeGateway
	err    error
	dials  int
	events Events
	// gate, when set, holds Dial until it is closed.
	gate    chan struct{}
	waiting int
}

func (d *fakeDialer) Dial(ctx context.Context, token string, ev Events) (Gateway, error) {
	d.mu.Lock()
	gate := d.gate
	d.waiting++
	d.mu.Unlock()
	if gate != nil {
		<-gate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	d.events = ev
	return d.gw, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) waitingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waiting
}

func (d *fakeDialer) captured() Events {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events
}

func (g *fakeGateway) historyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.limits)
}

func (g *fakeGateway) setListErr(err error) {
	g.mu.Lock()
	g.listErr = err
	g.mu.Unlock()
}

func (g *fakeGateway) setHistoryErr(id string, err error) {
	g.mu.Lock()
	g.historyErr[id] = err
	g.mu.Unlock()
}

func (g *fakeGateway) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// slowListGateway holds ListConversations until release is closed.
type slowListGateway struct {
	*fakeGateway
	release chan struct{}
}

func (g slowListGateway) ListConversations(ctx context.Context) ([]domainchat.ConversationSummary, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.fakeGateway.ListConversations(ctx)
}
