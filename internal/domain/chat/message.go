package chat

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyMessage      = errors.New("chat: message needs text or an attachment")
	ErrMessageIDRequired = errors.New("chat: message id is required")
)

// AttachmentType distinguishes inline images from other files.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentFile  AttachmentType = "file"
)

type Attachment struct {
	Type AttachmentType
	URL  string
	Name string
	Size int64
}

// Message is a chat message as shown in a thread. FromMe is derived from the
// sender and the local identity hint when the message enters a store.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	FromMe         bool
	Text           string
	Attachment     *Attachment
	CreatedAt      time.Time
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return ErrMessageIDRequired
	}
	if strings.TrimSpace(m.Text) == "" && m.Attachment == nil {
		return ErrEmptyMessage
	}
	return nil
}

// Image returns the attachment URL when the attachment is an image.
func (m Message) Image() string {
	if m.Attachment == nil || m.Attachment.Type != AttachmentImage {
		return ""
	}
	return m.Attachment.URL
}

// Draft is an outgoing message before the server assigns it an id.
type Draft struct {
	Text       string
	Attachment *Attachment
}

// NewDraft trims text and rejects drafts with nothing to send.
func NewDraft(text string, attachment *Attachment) (Draft, error) {
	text = strings.TrimSpace(text)
	if text == "" && attachment == nil {
		return Draft{}, ErrEmptyMessage
	}
	return Draft{Text: text, Attachment: attachment}, nil
}
