package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	chatapp "recyclemart/internal/app/chat"
	domainchat "recyclemart/internal/domain/chat"
)

func (m Model) View() string {
	if !m.started {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, mutedStyle.Render("Connecting to chat..."))
	}
	if !m.snap.Connected && m.startErr != nil && len(m.snap.Conversations) == 0 {
		body := errorStyle.Render("Chat is unavailable") + "\n\n" + m.toastView() + "\n" + mutedStyle.Render("ctrl+c to quit")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialogStyle.Render(body))
	}

	main := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), m.chatView())
	if m.snap.Composer.DialogOpen {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.attachmentDialog())
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.statusLine(), main, m.toastView())
}

func (m Model) statusLine() string {
	status := errorStyle.Render("offline")
	if m.snap.Connected {
		status = infoStyle.Render("online")
	}
	who := m.snap.Identity.Name
	if who == "" {
		who = m.snap.Identity.UserID
	}
	return titleStyle.Render("Recycle Mart chat") + " " + status + " " + mutedStyle.Render(who)
}

func (m Model) sidebarView() string {
	var s strings.Builder
	if m.searching || m.search.Value() != "" {
		s.WriteString(m.search.View() + "\n\n")
	}
	if len(m.snap.Conversations) == 0 {
		s.WriteString(mutedStyle.Render("No conversations yet."))
	}
	width := m.sidebarWidth() - 4
	for i, c := range m.snap.Conversations {
		name := truncate(c.Name, width-6)
		if c.UnreadCount > 0 {
			name += " " + badgeStyle.Render(strconv.Itoa(c.UnreadCount))
		}
		marker := "  "
		style := lipgloss.NewStyle()
		if i == m.cursor {
			marker = "> "
			style = selectedStyle
		}
		if c.ID == m.snap.ActiveID {
			marker = "* "
		}
		s.WriteString(style.Render(marker+name) + "\n")
		if c.LastMessage != "" {
			s.WriteString("  " + mutedStyle.Render(truncate(c.LastMessage, width-2)) + "\n")
		}
	}
	style := sidebarStyle.Width(m.sidebarWidth()).Height(m.height - 4)
	if m.focus == paneSidebar {
		style = style.BorderForeground(accentColor)
	}
	return style.Render(s.String())
}

func (m Model) chatView() string {
	style := chatStyle.Height(m.height - 4)
	if m.focus == paneChat {
		style = style.BorderForeground(accentColor)
	}
	if m.snap.ActiveID == "" {
		return style.Render(lipgloss.Place(m.thread.Width, m.thread.Height, lipgloss.Center, lipgloss.Center,
			mutedStyle.Render("Select a conversation to start chatting")))
	}

	header := titleStyle.Render(m.activeName())
	if ad := m.activeAd(); ad != nil {
		header += "\n" + mutedStyle.Render(fmt.Sprintf("%s  %s  %s", ad.Title, formatPrice(ad.Price), ad.Link))
	}
	if m.snap.Loading {
		header += " " + mutedStyle.Render("loading...")
	}

	footer := m.input.View()
	if m.picking {
		footer = m.path.View() + "\n" + mutedStyle.Render("enter to preview, esc to cancel")
	} else if m.snap.Composer.State == chatapp.ComposerSending || m.snap.Composer.State == chatapp.ComposerUploading {
		footer += "\n" + mutedStyle.Render(m.snap.Composer.State.String()+"...")
	} else if m.snap.Composer.Picked != nil {
		footer += "\n" + mutedStyle.Render("ctrl+r to retry "+m.snap.Composer.Picked.Name)
	}

	return style.Render(lipgloss.JoinVertical(lipgloss.Left, header, m.thread.View(), footer))
}

func (m Model) attachmentDialog() string {
	view := m.snap.Composer
	var s strings.Builder
	s.WriteString(titleStyle.Render("Send image") + "\n\n")
	if view.Picked != nil {
		s.WriteString(fmt.Sprintf("%s (%s, %s)\n", view.Picked.Name, view.Picked.MIME, formatSize(view.Picked.Size)))
	}
	switch view.State {
	case chatapp.ComposerUploading:
		s.WriteString("\n" + mutedStyle.Render("Uploading..."))
	case chatapp.ComposerSending:
		s.WriteString("\n" + mutedStyle.Render("Sending..."))
	default:
		if view.LastError != "" {
			s.WriteString("\n" + errorStyle.Render(view.LastError) + "\n")
		}
		s.WriteString("\n" + mutedStyle.Render("enter to send, esc to cancel"))
	}
	return dialogStyle.Render(s.String())
}

func (m Model) toastView() string {
	if len(m.notes) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.notes))
	for _, t := range m.notes {
		text := t.note.Title
		if t.note.Detail != "" {
			text += ": " + t.note.Detail
		}
		if t.note.Level == chatapp.LevelError {
			lines = append(lines, errorStyle.Render(text))
			continue
		}
		lines = append(lines, infoStyle.Render(text))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderThread() {
	var thread domainchat.Thread
	for _, msg := range m.snap.Messages {
		thread.Merge(msg)
	}
	now := m.now()
	var s strings.Builder
	for _, group := range thread.DayGroups(time.Local) {
		s.WriteString(dayStyle.Render("-- "+domainchat.DayLabel(group.Day, now)+" --") + "\n")
		for _, msg := range group.Messages {
			s.WriteString(m.renderMessage(msg) + "\n")
		}
	}
	m.thread.SetContent(s.String())
	m.thread.GotoBottom()
}

func (m Model) renderMessage(msg domainchat.Message) string {
	who := otherStyle.Render(m.activeName())
	if msg.FromMe {
		who = ownStyle.Render("You")
	}
	body := msg.Text
	if url := msg.Image(); url != "" {
		label := "[image " + msg.Attachment.Name + "] " + url
		if body != "" {
			body += "\n" + label
		} else {
			body = label
		}
	}
	return fmt.Sprintf("%s %s: %s", mutedStyle.Render(msg.CreatedAt.Local().Format("15:04")), who, body)
}

func (m Model) activeName() string {
	if m.snap.Active != nil && m.snap.Active.Name != "" {
		return m.snap.Active.Name
	}
	return "Conversation"
}

func (m Model) activeAd() *domainchat.AdSummary {
	if m.snap.Active == nil {
		return nil
	}
	return m.snap.Active.Ad
}

func truncate(s string, n int) string {
	if n <= 1 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatPrice(p float64) string {
	return "৳" + strconv.FormatFloat(p, 'f', -1, 64)
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
