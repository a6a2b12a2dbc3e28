package ginserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	chatapp "recyclemart/internal/app/chat"
	"recyclemart/internal/app/dto"
	domainchat "recyclemart/internal/domain/chat"
	"recyclemart/internal/infra/messaging"
)

// maxAttachmentBytes caps multipart uploads accepted by the bridge.
const maxAttachmentBytes = 10 << 20

// ChatSession is the chat session the bridge drives.
type ChatSession interface {
	Snapshot() chatapp.Snapshot
	Select(ctx context.Context, id string) error
	Open(ctx context.Context, link domainchat.DeepLink) (string, error)
	Send(ctx context.Context, draft domainchat.Draft) (domainchat.Message, error)
	SendImage(ctx context.Context, file chatapp.LocalFile) (domainchat.Message, error)
	Subscribe() (<-chan chatapp.Change, func())
}

type NoticeFeed interface {
	Recent() []chatapp.Notification
}

// ChatHandler exposes one chat session over HTTP.
type ChatHandler struct {
	Session ChatSession
	Notices NoticeFeed
	Logger  *slog.Logger
	// Location renders day labels. Defaults to time.Local.
	Location *time.Location
	// KeepAlive is the SSE comment interval.
	KeepAlive time.Duration
}

func (h ChatHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, sessionView(h.Session.Snapshot()))
}

// Conversations lists conversations, filtered by name with ?q=.
func (h ChatHandler) Conversations(c *gin.Context) {
	snap := h.Session.Snapshot()
	items := domainchat.FilterConversations(snap.Conversations, c.Query("q"))
	out := dto.ConversationList{Items: make([]dto.ConversationView, 0, len(items))}
	for _, item := range items {
		out.Items = append(out.Items, dto.NewConversationView(item))
	}
	c.JSON(http.StatusOK, out)
}

func (h ChatHandler) Select(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation id is required"})
		return
	}
	if err := h.Session.Select(c.Request.Context(), id); err != nil {
		h.respondChatError(c, err, "select conversation", "conversation_id", id)
		return
	}
	c.JSON(http.StatusOK, h.threadView(h.Session.Snapshot()))
}

func (h ChatHandler) Thread(c *gin.Context) {
	snap := h.Session.Snapshot()
	if snap.ActiveID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active conversation"})
		return
	}
	c.JSON(http.StatusOK, h.threadView(snap))
}

func (h ChatHandler) SendText(c *gin.Context) {
	var req dto.SendTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	draft, err := domainchat.NewDraft(req.Text, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	msg, err := h.Session.Send(c.Request.Context(), draft)
	if err != nil {
		h.respondChatError(c, err, "send message")
		return
	}
	c.JSON(http.StatusCreated, dto.NewMessageView(msg))
}

// SendAttachment accepts a multipart "file" field and sends it as an image.
func (h ChatHandler) SendAttachment(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAttachmentBytes)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	dir, err := os.MkdirTemp("", "chatbridge-*")
	if err != nil {
		h.logError("create upload dir", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot store upload"})
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, uploadName(header.Filename))
	if err := saveUpload(header, path); err != nil {
		h.logError("store upload", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot store upload"})
		return
	}
	file, err := chatapp.InspectFile(path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return
	}
	msg, err := h.Session.SendImage(c.Request.Context(), file)
	if err != nil {
		h.respondChatError(c, err, "send attachment", "file", file.Name)
		return
	}
	c.JSON(http.StatusCreated, dto.NewMessageView(msg))
}

// Open finds or creates the conversation about an ad and activates it.
func (h ChatHandler) Open(c *gin.Context) {
	var req dto.OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "adId and participantId are required"})
		return
	}
	link := domainchat.DeepLink{AdID: strings.TrimSpace(req.AdID), ParticipantID: strings.TrimSpace(req.ParticipantID)}
	id, err := h.Session.Open(c.Request.Context(), link)
	if err != nil {
		h.respondChatError(c, err, "open conversation", "ad_id", link.AdID)
		return
	}
	if id == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "conversation could not be opened"})
		return
	}
	c.JSON(http.StatusOK, dto.OpenResponse{ConversationID: id})
}

func (h ChatHandler) Notifications(c *gin.Context) {
	if h.Notices == nil {
		c.JSON(http.StatusOK, gin.H{"items": []any{}})
		return
	}
	recent := h.Notices.Recent()
	items := make([]gin.H, 0, len(recent))
	for _, n := range recent {
		level := "info"
		if n.Level == chatapp.LevelError {
			level = "error"
		}
		items = append(items, gin.H{"level": level, "title": n.Title, "detail": n.Detail, "at": n.At})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Stream sends the session state as server-sent events: one "session" event
// up front and one event per change, named after the change kind.
func (h ChatHandler) Stream(c *gin.Context) {
	changes, unsubscribe := h.Session.Subscribe()
	defer unsubscribe()

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("session", sessionView(h.Session.Snapshot()))
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			return true
		case change, ok := <-changes:
			if !ok {
				return false
			}
			snap := h.Session.Snapshot()
			switch change.Kind {
			case chatapp.ChangeConversations:
				c.SSEvent(change.Kind.String(), conversationList(snap.Conversations))
			case chatapp.ChangeThread, chatapp.ChangeActive:
				c.SSEvent(change.Kind.String(), h.threadView(snap))
			default:
				c.SSEvent(change.Kind.String(), sessionView(snap))
			}
			return true
		}
	})
}

func (h ChatHandler) threadView(snap chatapp.Snapshot) dto.ThreadView {
	loc := h.Location
	if loc == nil {
		loc = time.Local
	}
	view := dto.ThreadView{ConversationID: snap.ActiveID, Loading: snap.Loading, Days: []dto.DayView{}}
	if snap.Active != nil {
		conv := dto.NewConversationView(*snap.Active)
		view.Conversation = &conv
	}
	var thread domainchat.Thread
	for _, m := range snap.Messages {
		thread.Merge(m)
	}
	now := time.Now().In(loc)
	for _, group := range thread.DayGroups(loc) {
		day := dto.DayView{Label: domainchat.DayLabel(group.Day, now), Messages: make([]dto.MessageView, 0, len(group.Messages))}
		for _, m := range group.Messages {
			day.Messages = append(day.Messages, dto.NewMessageView(m))
		}
		view.Days = append(view.Days, day)
	}
	return view
}

func sessionView(snap chatapp.Snapshot) dto.SessionView {
	return dto.SessionView{
		Connected: snap.Connected,
		UserID:    snap.Identity.UserID,
		UserName:  snap.Identity.Name,
		ActiveID:  snap.ActiveID,
		Composer:  snap.Composer.State.String(),
		Opener:    snap.Opener.String(),
		Location:  snap.Location,
	}
}

func conversationList(items []domainchat.ConversationSummary) dto.ConversationList {
	out := dto.ConversationList{Items: make([]dto.ConversationView, 0, len(items))}
	for _, item := range items {
		out.Items = append(out.Items, dto.NewConversationView(item))
	}
	return out
}

// uploadName is the base of the client's file name, or a generated one when
// that names no file.
func uploadName(raw string) string {
	name := filepath.Base(raw)
	switch name {
	case "", ".", "..", string(filepath.Separator):
		return uuid.NewString()
	}
	return name
}

func saveUpload(header *multipart.FileHeader, path string) error {
	src, err := header.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func (h ChatHandler) respondChatError(c *gin.Context, err error, action string, attrs ...any) {
	if h.Logger != nil {
		h.Logger.Warn("chat call failed", append([]any{"action", action, "error", err}, attrs...)...)
	}
	var server chatapp.ServerMessager
	switch {
	case errors.Is(err, chatapp.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "please log in to chat"})
	case errors.Is(err, chatapp.ErrNoConversation):
		c.JSON(http.StatusConflict, gin.H{"error": "no active conversation"})
	case errors.Is(err, chatapp.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "another send is in progress"})
	case errors.Is(err, chatapp.ErrNotImage):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "only image files can be attached"})
	case errors.Is(err, chatapp.ErrSelfChat), errors.Is(err, domainchat.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, messaging.ErrAckTimeout), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "chat server did not answer"})
	case errors.Is(err, chatapp.ErrNotConnected), errors.Is(err, messaging.ErrDisconnected),
		errors.Is(err, messaging.ErrClosed), errors.Is(err, messaging.ErrNotConnected):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat unavailable"})
	case errors.As(err, &server) && server.ServerMessage() != "":
		c.JSON(http.StatusBadGateway, gin.H{"error": server.ServerMessage()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "chat unavailable"})
	}
}

func (h ChatHandler) logError(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Error(msg, "error", err)
	}
}

var _ ChatHTTP = ChatHandler{}
