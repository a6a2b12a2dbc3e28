package dto

import (
	"time"

	"recyclemart/internal/domain/chat"
)

// Views served by the local chat bridge.

type AdView struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Price    float64   `json:"price"`
	Image    string    `json:"image,omitempty"`
	Location string    `json:"location,omitempty"`
	Posted   time.Time `json:"posted,omitempty"`
	Link     string    `json:"link"`
}

type ConversationView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar,omitempty"`
	LastMessage string    `json:"lastMessage"`
	LastTime    time.Time `json:"lastTime,omitempty"`
	UnreadCount int       `json:"unreadCount"`
	Ad          *AdView   `json:"ad,omitempty"`
}

type AttachmentView struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"`
}

type MessageView struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	SenderID       string          `json:"senderId"`
	FromMe         bool            `json:"fromMe"`
	Text           string          `json:"text,omitempty"`
	Attachment     *AttachmentView `json:"attachment,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type DayView struct {
	Label    string        `json:"label"`
	Messages []MessageView `json:"messages"`
}

type ThreadView struct {
	ConversationID string            `json:"conversationId"`
	Conversation   *ConversationView `json:"conversation,omitempty"`
	Loading        bool              `json:"loading"`
	Days           []DayView         `json:"days"`
}

type SessionView struct {
	Connected bool   `json:"connected"`
	UserID    string `json:"userId,omitempty"`
	UserName  string `json:"userName,omitempty"`
	ActiveID  string `json:"activeId,omitempty"`
	Composer  string `json:"composer"`
	Opener    string `json:"opener"`
	Location  string `json:"location"`
}

type ConversationList struct {
	Items []ConversationView `json:"items"`
}

type SendTextRequest struct {
	Text string `json:"text" binding:"required"`
}

type OpenRequest struct {
	AdID          string `json:"adId" binding:"required"`
	ParticipantID string `json:"participantId" binding:"required"`
}

type OpenResponse struct {
	ConversationID string `json:"conversationId"`
}

func NewConversationView(c chat.ConversationSummary) ConversationView {
	v := ConversationView{
		ID:          c.ID,
		Name:        c.Name,
		Avatar:      c.Avatar,
		LastMessage: c.LastMessage,
		LastTime:    c.LastTime,
		UnreadCount: c.UnreadCount,
	}
	if c.Ad != nil {
		v.Ad = &AdView{
			ID:       c.Ad.ID,
			Title:    c.Ad.Title,
			Price:    c.Ad.Price,
			Image:    c.Ad.Image,
			Location: c.Ad.Location,
			Posted:   c.Ad.Posted,
			Link:     c.Ad.Link,
		}
	}
	return v
}

func NewMessageView(m chat.Message) MessageView {
	v := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		FromMe:         m.FromMe,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
	}
	if m.Attachment != nil {
		v.Attachment = &AttachmentView{
			Type: string(m.Attachment.Type),
			URL:  m.Attachment.URL,
			Name: m.Attachment.Name,
			Size: m.Attachment.Size,
		}
	}
	return v
}
