package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	chatapp "recyclemart/internal/app/chat"
	"recyclemart/internal/app/dto"
	domainchat "recyclemart/internal/domain/chat"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 1 << 20
)

// Config defines socket client settings.
type Config struct {
	URL              string
	Namespace        string
	DialTimeout      time.Duration
	CallTimeout      time.Duration
	ReconnectBackoff []time.Duration
}

// Client is a chat connection speaking the request/ack protocol over one
// websocket. It redials with the configured backoff when the connection
// drops.
type Client struct {
	cfg    Config
	url    string
	token  string
	events chatapp.Events
	dialer *websocket.Dialer
	logger *slog.Logger

	mu      sync.Mutex
	link    *link
	pending map[string]chan dto.Envelope
	closed  bool
	done    chan struct{}
	// life is canceled once the client is closed; it bounds redials.
	life context.Context
	stop context.CancelFunc
}

// link is one physical websocket connection.
type link struct {
	conn *websocket.Conn
	out  chan []byte
	dead chan struct{}
}

// Dial opens the chat namespace authenticated with token and waits for the
// server's connect frame.
func Dial(ctx context.Context, cfg Config, token string, events chatapp.Events, logger *slog.Logger) (*Client, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "/chat"
	}
	target, err := endpoint(cfg.URL, cfg.Namespace, token)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:     cfg,
		url:     target,
		token:   token,
		events:  events,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout, Proxy: http.ProxyFromEnvironment},
		logger:  logger,
		pending: make(map[string]chan dto.Envelope),
		done:    make(chan struct{}),
	}
	c.life, c.stop = context.WithCancel(context.Background())
	l, err := c.connect(ctx)
	if err != nil {
		c.stop()
		return nil, err
	}
	c.mu.Lock()
	c.link = l
	c.mu.Unlock()
	go c.run(l)
	logger.Info("chat socket connected", "url", cfg.URL, "namespace", cfg.Namespace)
	return c, nil
}

func (c *Client) connect(ctx context.Context) (*link, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	conn, resp, err := c.dialer.DialContext(dialCtx, c.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, &ConnectError{Status: resp.StatusCode, Message: envelopeMessage(body)}
		}
		return nil, fmt.Errorf("messaging: dial: %w", err)
	}

	if err := c.handshake(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &link{
		conn: conn,
		out:  make(chan []byte, 16),
		dead: make(chan struct{}),
	}, nil
}

func (c *Client) handshake(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(c.cfg.DialTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("messaging: handshake: %w", err)
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("messaging: handshake: %w", err)
	}
	switch f.Kind {
	case kindConnect:
		conn.SetReadDeadline(time.Time{})
		return nil
	case kindConnectError:
		return &ConnectError{Message: envelopeMessage(f.Data)}
	default:
		return fmt.Errorf("%w: %q during handshake", ErrProtocol, f.Kind)
	}
}

// run serves links until the client is closed or reconnecting gives up.
func (c *Client) run(l *link) {
	for {
		err := c.serve(l)
		if c.isClosed() {
			return
		}
		c.setLink(nil)
		c.logger.Warn("chat socket lost", "error", err)
		if c.events.OnDisconnect != nil {
			c.events.OnDisconnect(err)
		}
		var refused *ConnectError
		if errors.As(err, &refused) {
			c.giveUp(err)
			return
		}
		next, err := c.redial(err)
		if err != nil {
			c.giveUp(err)
			return
		}
		if !c.install(next) {
			next.conn.Close()
			return
		}
		if c.events.OnReconnect != nil {
			c.events.OnReconnect()
		}
		l = next
	}
}

// serve pumps one link and returns why it ended.
func (c *Client) serve(l *link) error {
	go c.writePump(l)
	err := c.readPump(l)
	close(l.dead)
	return err
}

func (c *Client) redial(cause error) (*link, error) {
	lastErr := cause
	for attempt, wait := range c.cfg.ReconnectBackoff {
		timer := time.NewTimer(wait)
		select {
		case <-c.done:
			timer.Stop()
			return nil, ErrClosed
		case <-timer.C:
		}
		l, err := c.connect(c.life)
		if err == nil {
			c.logger.Info("chat socket reconnected", "attempt", attempt+1)
			return l, nil
		}
		lastErr = err
		c.logger.Warn("chat socket reconnect failed", "attempt", attempt+1, "error", err)
		var refused *ConnectError
		if errors.As(err, &refused) {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) giveUp(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.stop()
	c.mu.Unlock()
	if c.events.OnClosed != nil {
		c.events.OnClosed(err)
	}
}

func (c *Client) readPump(l *link) error {
	l.conn.SetReadLimit(maxFrameSize)
	l.conn.SetReadDeadline(time.Now().Add(pongWait))
	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := c.dispatch(data); err != nil {
			return err
		}
	}
}

func (c *Client) writePump(l *link) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		l.conn.Close()
	}()
	for {
		select {
		case msg := <-l.out:
			l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Warn("chat socket write failed", "error", err)
				return
			}
		case <-ticker.C:
			l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-l.dead:
			l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			l.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) dispatch(data []byte) error {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		c.logger.Warn("chat socket sent malformed frame", "error", err)
		return nil
	}
	switch f.Kind {
	case kindAck:
		var env dto.Envelope
		if err := json.Unmarshal(f.Data, &env); err != nil {
			env = dto.Envelope{Success: false, Message: "malformed acknowledgment"}
		}
		c.resolve(f.ID, env)
	case kindEvent:
		c.handleEvent(f.Event, f.Data)
	case kindConnectError:
		return &ConnectError{Message: envelopeMessage(f.Data)}
	default:
		c.logger.Debug("chat socket frame ignored", "kind", f.Kind)
	}
	return nil
}

func (c *Client) resolve(id string, env dto.Envelope) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("late acknowledgment dropped", "id", id)
		return
	}
	ch <- env
}

func (c *Client) handleEvent(event string, data json.RawMessage) {
	switch event {
	case dto.EventMessageNew:
		var m dto.ChatMessage
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Warn("malformed message push", "error", err)
			return
		}
		if c.events.OnMessage != nil {
			c.events.OnMessage(dto.ToMessage(m, ""))
		}
	default:
		c.logger.Debug("chat event ignored", "event", event)
	}
}

// emit sends a request and waits for its acknowledgment. A missing
// acknowledgment turns into an AckError once the call timeout elapses.
func (c *Client) emit(ctx context.Context, event string, payload any) (dto.Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return dto.Envelope{}, fmt.Errorf("messaging: encode %s: %w", event, err)
	}
	id := uuid.NewString()
	raw, err := json.Marshal(frame{Kind: kindRequest, ID: id, Event: event, Data: data})
	if err != nil {
		return dto.Envelope{}, err
	}

	ch := make(chan dto.Envelope, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return dto.Envelope{}, ErrClosed
	}
	l := c.link
	if l == nil {
		c.mu.Unlock()
		return dto.Envelope{}, ErrNotConnected
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	callCtx, cancel := c.wrapCall(ctx)
	defer cancel()

	select {
	case l.out <- raw:
	case <-l.dead:
		return dto.Envelope{}, ErrDisconnected
	case <-callCtx.Done():
		return dto.Envelope{}, c.callErr(ctx, event)
	}

	select {
	case env := <-ch:
		if !env.Success {
			msg := env.Message
			if msg == "" {
				msg = "request failed"
			}
			return env, &AckError{Event: event, Message: msg, Sources: env.ErrorSources}
		}
		return env, nil
	case <-l.dead:
		return dto.Envelope{}, ErrDisconnected
	case <-callCtx.Done():
		return dto.Envelope{}, c.callErr(ctx, event)
	}
}

func (c *Client) callErr(ctx context.Context, event string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return &AckError{Event: event, Message: "The server did not respond in time.", Timeout: true}
}

func (c *Client) wrapCall(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := c.cfg.CallTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

// ListConversations returns the user's conversations in server order.
func (c *Client) ListConversations(ctx context.Context) ([]domainchat.ConversationSummary, error) {
	env, err := c.emit(ctx, dto.EventConversationList, struct{}{})
	if err != nil {
		return nil, err
	}
	var items []dto.Conversation
	if err := env.Decode(&items); err != nil {
		return nil, fmt.Errorf("messaging: decode conversations: %w", err)
	}
	out := make([]domainchat.ConversationSummary, 0, len(items))
	for _, item := range items {
		out = append(out, dto.ToConversationSummary(item))
	}
	return out, nil
}

// JoinConversation subscribes the connection to a conversation room.
func (c *Client) JoinConversation(ctx context.Context, conversationID string) error {
	_, err := c.emit(ctx, dto.EventConversationJoin, dto.JoinRequest{ConversationID: conversationID})
	return err
}

// UpsertConversation returns the conversation about an ad with a
// participant, creating it when needed.
func (c *Client) UpsertConversation(ctx context.Context, adID, participantID string) (string, error) {
	env, err := c.emit(ctx, dto.EventConversationUpsert, dto.UpsertRequest{AdID: adID, ParticipantID: participantID})
	if err != nil {
		return "", err
	}
	var conv dto.Conversation
	if err := env.Decode(&conv); err != nil {
		return "", fmt.Errorf("messaging: decode conversation: %w", err)
	}
	if conv.ID == "" {
		return "", ErrNoConversationID
	}
	return conv.ID, nil
}

// ListMessages returns the newest messages of a conversation, newest first.
func (c *Client) ListMessages(ctx context.Context, conversationID string, limit int) ([]domainchat.Message, error) {
	env, err := c.emit(ctx, dto.EventMessageList, dto.MessageListRequest{ConversationID: conversationID, Limit: limit})
	if err != nil {
		return nil, err
	}
	var items []dto.ChatMessage
	if err := env.Decode(&items); err != nil {
		return nil, fmt.Errorf("messaging: decode messages: %w", err)
	}
	out := make([]domainchat.Message, 0, len(items))
	for _, item := range items {
		msg := dto.ToMessage(item, "")
		if msg.ConversationID == "" {
			msg.ConversationID = conversationID
		}
		out = append(out, msg)
	}
	return out, nil
}

// SendMessage posts a draft and returns the stored message.
func (c *Client) SendMessage(ctx context.Context, conversationID string, draft domainchat.Draft) (domainchat.Message, error) {
	env, err := c.emit(ctx, dto.EventMessageSend, dto.FromDraft(conversationID, draft))
	if err != nil {
		return domainchat.Message{}, err
	}
	var item dto.ChatMessage
	if err := env.Decode(&item); err != nil {
		return domainchat.Message{}, fmt.Errorf("messaging: decode message: %w", err)
	}
	msg := dto.ToMessage(item, "")
	if msg.ConversationID == "" {
		msg.ConversationID = conversationID
	}
	return msg, nil
}

// Close releases the websocket. No events fire afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.stop()
	l := c.link
	c.link = nil
	c.mu.Unlock()
	if l == nil {
		return nil
	}
	return l.conn.Close()
}

func (c *Client) setLink(l *link) {
	c.mu.Lock()
	c.link = l
	c.mu.Unlock()
}

// install makes l the current link unless the client was closed meanwhile.
func (c *Client) install(l *link) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.link = l
	return true
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Dialer opens Clients for the chat session.
type Dialer struct {
	Config Config
	Logger *slog.Logger
}

func (d Dialer) Dial(ctx context.Context, token string, events chatapp.Events) (chatapp.Gateway, error) {
	c, err := Dial(ctx, d.Config, token, events, d.Logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

var (
	_ chatapp.Gateway = (*Client)(nil)
	_ chatapp.Dialer  = Dialer{}
)
