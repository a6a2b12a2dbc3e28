package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"recyclemart/internal/domain/chat"
)

// Socket event names of the chat namespace.
const (
	EventConversationList   = "chat:conversation:list"
	EventConversationJoin   = "chat:conversation:join"
	EventConversationUpsert = "chat:conversation:upsert"
	EventMessageList        = "chat:message:list"
	EventMessageSend        = "chat:message:send"
	EventMessageNew         = "chat:message:new"
)

// Ref is a reference the server sends either as a bare id or as a populated
// document with an _id field.
type Ref struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &r.ID)
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

// AdRef is the ad a conversation was started from.
type AdRef struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	Image     string    `json:"image,omitempty"`
	Images    []string  `json:"images,omitempty"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is the server shape of a conversation list entry.
type Conversation struct {
	ID            string    `json:"_id"`
	Participant   Ref       `json:"participant"`
	Ad            *AdRef    `json:"ad,omitempty"`
	LastMessage   string    `json:"lastMessage,omitempty"`
	LastMessageAt time.Time `json:"lastMessageAt,omitempty"`
	UnreadCount   int       `json:"unreadCount"`
}

type Attachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// ChatMessage is the server shape of a message, used by history pages, send
// acks and pushes alike.
type ChatMessage struct {
	ID           string      `json:"_id"`
	Conversation Ref         `json:"conversation"`
	Sender       Ref         `json:"sender"`
	Text         string      `json:"text,omitempty"`
	Attachment   *Attachment `json:"attachment,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

type JoinRequest struct {
	ConversationID string `json:"conversationId"`
}

type UpsertRequest struct {
	AdID          string `json:"adId"`
	ParticipantID string `json:"participantId"`
}

type MessageListRequest struct {
	ConversationID string `json:"conversationId"`
	Limit          int    `json:"limit"`
}

type SendMessageRequest struct {
	ConversationID string      `json:"conversationId"`
	Text           string      `json:"text,omitempty"`
	Attachment     *Attachment `json:"attachment,omitempty"`
}

// UploadResult is the data block of the image upload endpoint.
type UploadResult struct {
	URL string `json:"url"`
}

// ToConversationSummary maps a server conversation onto the list row shape.
func ToConversationSummary(c Conversation) chat.ConversationSummary {
	out := chat.ConversationSummary{
		ID:          c.ID,
		Name:        c.Participant.Name,
		Avatar:      c.Participant.Image,
		LastMessage: c.LastMessage,
		LastTime:    c.LastMessageAt,
		UnreadCount: c.UnreadCount,
	}
	if out.Name == "" {
		out.Name = "Unknown user"
	}
	if c.Ad != nil {
		image := c.Ad.Image
		if image == "" && len(c.Ad.Images) > 0 {
			image = c.Ad.Images[0]
		}
		out.Ad = &chat.AdSummary{
			ID:       c.Ad.ID,
			Title:    c.Ad.Title,
			Price:    c.Ad.Price,
			Image:    image,
			Location: c.Ad.Location,
			Posted:   c.Ad.CreatedAt,
			Link:     chat.AdLink(c.Ad.ID),
		}
	}
	return out
}

// ToMessage maps a server message; me is the local user id used for FromMe.
func ToMessage(m ChatMessage, me string) chat.Message {
	out := chat.Message{
		ID:             m.ID,
		ConversationID: m.Conversation.ID,
		SenderID:       m.Sender.ID,
		FromMe:         me != "" && m.Sender.ID == me,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
	}
	if m.Attachment != nil && m.Attachment.URL != "" {
		kind := chat.AttachmentType(m.Attachment.Type)
		if kind != chat.AttachmentImage {
			kind = chat.AttachmentFile
		}
		out.Attachment = &chat.Attachment{
			Type: kind,
			URL:  m.Attachment.URL,
			Name: m.Attachment.Name,
			Size: m.Attachment.Size,
		}
	}
	return out
}

// FromDraft builds the send payload for a conversation.
func FromDraft(conversationID string, d chat.Draft) SendMessageRequest {
	req := SendMessageRequest{ConversationID: conversationID, Text: d.Text}
	if d.Attachment != nil {
		req.Attachment = &Attachment{
			Type: string(d.Attachment.Type),
			URL:  d.Attachment.URL,
			Name: d.Attachment.Name,
			Size: d.Attachment.Size,
		}
	}
	return req
}
