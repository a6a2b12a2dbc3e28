package main

import (
	"context"
	"fmt"
	"net/url"

	tea "github.com/charmbracelet/bubbletea"

	chatapp "recyclemart/internal/app/chat"
	"recyclemart/internal/ui/tui"
)

// runChat opens the chat window. An optional argument is a chat location
// such as "/chat?adId=A1&participantId=U2".
func runChat(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("chat")
	ad := fs.String("ad", "", "ad to chat about")
	participant := fs.String("participant", "", "user to chat with")
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw := fs.Arg(0)
	if raw == "" && *ad != "" && *participant != "" {
		raw = "/chat?" + url.Values{"adId": {*ad}, "participantId": {*participant}}.Encode()
	}
	loc, err := chatapp.NewLocation(raw)
	if err != nil {
		return fmt.Errorf("chat link: %w", err)
	}
	if _, err := c.app.Auth.AccessToken(ctx); err != nil {
		return err
	}

	toasts := tui.NewToasts()
	session, err := c.app.ChatSession(toasts, loc)
	if err != nil {
		return err
	}
	defer session.Close()

	program := tea.NewProgram(tui.New(ctx, session, session.Composer, toasts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
