package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	domainchat "recyclemart/internal/domain/chat"
)

// ComposerState is the state of the message input and attachment dialog.
type ComposerState int

const (
	ComposerIdle ComposerState = iota
	ComposerComposing
	ComposerSending
	ComposerAttachmentPicked
	ComposerUploading
)

func (s ComposerState) String() string {
	switch s {
	case ComposerComposing:
		return "composing"
	case ComposerSending:
		return "sending"
	case ComposerAttachmentPicked:
		return "attachment_picked"
	case ComposerUploading:
		return "uploading"
	default:
		return "idle"
	}
}

// SendFunc delivers a draft to the active conversation and returns the
// acknowledged message.
type SendFunc func(ctx context.Context, draft domainchat.Draft) (domainchat.Message, error)

// Uploader stores a picked file and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, file LocalFile) (string, error)
}

// ComposerView is a point-in-time copy of the composer for rendering.
type ComposerView struct {
	State      ComposerState
	Input      string
	Picked     *LocalFile
	DialogOpen bool
	CanSend    bool
	LastError  string
}

// Composer drives text and attachment sends. The input is cleared only
// after the server acknowledged the message.
type Composer struct {
	Send     SendFunc
	Uploader Uploader
	Notifier Notifier
	Logger   *slog.Logger
	OnChange func()

	mu         sync.Mutex
	state      ComposerState
	input      string
	picked     *LocalFile
	dialogOpen bool
	lastErr    error
}

func (c *Composer) SetInput(s string) {
	c.mu.Lock()
	c.input = s
	if c.state == ComposerIdle || c.state == ComposerComposing {
		c.state = c.textState()
	}
	c.mu.Unlock()
	c.changed()
}

// SendText sends the trimmed input. Blank input sends nothing and returns
// domainchat.ErrEmptyMessage.
func (c *Composer) SendText(ctx context.Context) error {
	c.mu.Lock()
	if c.busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	draft, err := domainchat.NewDraft(c.input, nil)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	prev := c.state
	c.state = ComposerSending
	c.mu.Unlock()
	c.changed()

	_, err = c.deliver(ctx, draft)

	c.mu.Lock()
	if err != nil {
		c.state = prev
		c.lastErr = err
	} else {
		c.input = ""
		c.lastErr = nil
		c.state = c.textState()
	}
	c.mu.Unlock()
	c.changed()
	if err != nil {
		notify(c.Notifier, LevelError, titleSendFailed, describe(err))
	}
	return err
}

// PickAttachment inspects path and opens the preview dialog for it.
func (c *Composer) PickAttachment(path string) error {
	file, err := InspectFile(path)
	if err != nil {
		notify(c.Notifier, LevelError, titleUploadFailed, err.Error())
		return err
	}
	return c.PickFile(file)
}

// PickFile opens the preview dialog for an already inspected file.
func (c *Composer) PickFile(file LocalFile) error {
	if !IsImage(file.MIME) {
		notify(c.Notifier, LevelError, titleNotImage, detailNotImage)
		return ErrNotImage
	}
	c.mu.Lock()
	if c.busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	c.picked = &file
	c.dialogOpen = true
	c.state = ComposerAttachmentPicked
	c.mu.Unlock()
	c.changed()
	return nil
}

// CancelAttachment closes the dialog and forgets the picked file.
func (c *Composer) CancelAttachment() {
	c.mu.Lock()
	if c.busy() {
		c.mu.Unlock()
		return
	}
	c.picked = nil
	c.dialogOpen = false
	c.state = c.textState()
	c.mu.Unlock()
	c.changed()
}

// ConfirmAttachment uploads the picked file and sends it. A failed upload
// sends nothing and leaves the dialog open with the file still picked. Once
// the send is answered the dialog closes; the file is forgotten only when
// the send succeeded. Confirming with nothing picked closes the dialog and
// returns ErrNothingPicked without any request.
func (c *Composer) ConfirmAttachment(ctx context.Context) error {
	c.mu.Lock()
	if c.busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.picked == nil {
		c.dialogOpen = false
		c.state = c.textState()
		c.mu.Unlock()
		c.changed()
		return ErrNothingPicked
	}
	file := *c.picked
	c.state = ComposerUploading
	c.mu.Unlock()
	c.changed()

	if c.Uploader == nil {
		err := errors.New("chat: uploader is not configured")
		c.fail(ComposerAttachmentPicked, err)
		return err
	}
	url, err := c.Uploader.Upload(ctx, file)
	if err != nil {
		c.fail(ComposerAttachmentPicked, err)
		return err
	}

	c.mu.Lock()
	c.state = ComposerSending
	c.mu.Unlock()
	c.changed()

	draft, _ := domainchat.NewDraft("", &domainchat.Attachment{
		Type: domainchat.AttachmentImage,
		URL:  url,
		Name: file.Name,
		Size: file.Size,
	})
	_, err = c.deliver(ctx, draft)

	c.mu.Lock()
	c.dialogOpen = false
	if err == nil {
		c.picked = nil
		c.lastErr = nil
	} else {
		c.lastErr = err
	}
	c.state = c.textState()
	c.mu.Unlock()
	c.changed()
	if err != nil {
		notify(c.Notifier, LevelError, titleSendFailed, describe(err))
	}
	return err
}

// ReopenAttachment shows the dialog again for a file kept after a failed send.
func (c *Composer) ReopenAttachment() bool {
	c.mu.Lock()
	if c.picked == nil || c.busy() {
		c.mu.Unlock()
		return false
	}
	c.dialogOpen = true
	c.state = ComposerAttachmentPicked
	c.mu.Unlock()
	c.changed()
	return true
}

// Reset returns the composer to idle, used when the active conversation
// changes.
func (c *Composer) Reset() {
	c.mu.Lock()
	if c.busy() {
		c.mu.Unlock()
		return
	}
	c.input = ""
	c.picked = nil
	c.dialogOpen = false
	c.lastErr = nil
	c.state = ComposerIdle
	c.mu.Unlock()
	c.changed()
}

func (c *Composer) View() ComposerView {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := ComposerView{
		State:      c.state,
		Input:      c.input,
		DialogOpen: c.dialogOpen,
		CanSend:    !c.busy() && strings.TrimSpace(c.input) != "",
	}
	if c.picked != nil {
		picked := *c.picked
		v.Picked = &picked
	}
	if c.lastErr != nil {
		v.LastError = describe(c.lastErr)
	}
	return v
}

func (c *Composer) deliver(ctx context.Context, draft domainchat.Draft) (domainchat.Message, error) {
	if c.Send == nil {
		return domainchat.Message{}, ErrNotConnected
	}
	msg, err := c.Send(ctx, draft)
	if err != nil && c.Logger != nil {
		c.Logger.Warn("send message failed", "error", err)
	}
	return msg, err
}

func (c *Composer) fail(state ComposerState, err error) {
	c.mu.Lock()
	c.state = state
	c.lastErr = err
	c.mu.Unlock()
	c.changed()
}

func (c *Composer) busy() bool {
	return c.state == ComposerSending || c.state == ComposerUploading
}

func (c *Composer) textState() ComposerState {
	if c.dialogOpen && c.picked != nil {
		return ComposerAttachmentPicked
	}
	if strings.TrimSpace(c.input) != "" {
		return ComposerComposing
	}
	return ComposerIdle
}

func (c *Composer) changed() {
	if c.OnChange != nil {
		c.OnChange()
	}
}
