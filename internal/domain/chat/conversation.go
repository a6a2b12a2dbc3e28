package chat

import (
	"strings"
	"time"
)

// AdSummary is the listing a conversation is about.
type AdSummary struct {
	ID       string
	Title    string
	Price    float64
	Image    string
	Location string
	Posted   time.Time
	Link     string
}

// ConversationSummary is one row of the conversation list, already mapped
// from the server's shape.
type ConversationSummary struct {
	ID          string
	Name        string
	Avatar      string
	LastMessage string
	LastTime    time.Time
	UnreadCount int
	Ad          *AdSummary
}

// AdLink returns the in-app path of an ad detail page.
func AdLink(adID string) string {
	if adID == "" {
		return ""
	}
	return "/ads/" + adID
}

// FilterConversations keeps conversations whose name contains query,
// ignoring case. An empty query returns the list unchanged.
func FilterConversations(items []ConversationSummary, query string) []ConversationSummary {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return append([]ConversationSummary(nil), items...)
	}
	out := make([]ConversationSummary, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), query) {
			out = append(out, item)
		}
	}
	return out
}
