package chat

import (
	"errors"
	"strings"
)

const (
	titleLoginRequired   = "Please log in to chat"
	titleConnectFailed   = "Chat connection failed"
	titleDisconnected    = "Chat disconnected"
	titleReconnected     = "Chat reconnected"
	titleListFailed      = "Could not load conversations"
	titleJoinFailed      = "Could not join the conversation"
	titleHistoryFailed   = "Could not load messages"
	titleOpenFailed      = "Could not open the chat"
	titleSelfChat        = "This is your own ad"
	titleSendFailed      = "Message not sent"
	titleUploadFailed    = "Upload failed"
	titleNotImage        = "Only images can be attached"
	detailLoginRequired  = "Sign in again to send and receive messages."
	detailNotImage       = "Pick a PNG, JPEG, GIF or WebP file."
	detailSelfChat       = "You cannot start a chat with yourself."
	detailGenericFailure = "Something went wrong, please try again."
)

// ServerMessager is implemented by errors that carry a message from the
// server suitable for display.
type ServerMessager interface {
	ServerMessage() string
}

// describe picks the server's message from err when there is one.
func describe(err error) string {
	var sm ServerMessager
	if errors.As(err, &sm) {
		if msg := strings.TrimSpace(sm.ServerMessage()); msg != "" {
			return msg
		}
	}
	return detailGenericFailure
}
