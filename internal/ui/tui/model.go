// Package tui renders a chat session in the terminal.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	chatapp "recyclemart/internal/app/chat"
)

// Session is the part of a chat session the UI drives.
type Session interface {
	Start(ctx context.Context) error
	Select(ctx context.Context, id string) error
	Refresh(ctx context.Context) error
	SetQuery(q string)
	Snapshot() chatapp.Snapshot
	Subscribe() (<-chan chatapp.Change, func())
}

// Composer is the message composer of the session.
type Composer interface {
	SetInput(s string)
	SendText(ctx context.Context) error
	PickAttachment(path string) error
	CancelAttachment()
	ConfirmAttachment(ctx context.Context) error
	ReopenAttachment() bool
}

type pane int

const (
	paneSidebar pane = iota
	paneChat
)

type (
	changeMsg  struct{}
	closedMsg  struct{}
	toastMsg   chatapp.Notification
	startedMsg struct{ err error }
	sentMsg    struct{ err error }
	pickedMsg  struct{ err error }
	expireMsg  struct{}
	actionMsg  struct{ err error }
)

type toast struct {
	note    chatapp.Notification
	expires time.Time
}

// Model is the bubbletea model of the chat view.
type Model struct {
	ctx      context.Context
	session  Session
	composer Composer
	toasts   *Toasts
	changes  <-chan chatapp.Change
	stop     func()
	now      func() time.Time

	snap     chatapp.Snapshot
	focus    pane
	cursor   int
	width    int
	height   int
	started  bool
	startErr error

	searching bool
	search    textinput.Model
	input     textinput.Model
	picking   bool
	path      textinput.Model
	thread    viewport.Model

	notes []toast
}

func New(ctx context.Context, session Session, composer Composer, toasts *Toasts) Model {
	search := textinput.New()
	search.Placeholder = "Search conversations"
	search.Prompt = "/ "

	input := textinput.New()
	input.Placeholder = "Type a message"
	input.Prompt = "> "
	input.CharLimit = 2000

	path := textinput.New()
	path.Placeholder = "Path to an image"
	path.Prompt = "file: "

	changes, stop := session.Subscribe()
	return Model{
		ctx:      ctx,
		session:  session,
		composer: composer,
		toasts:   toasts,
		changes:  changes,
		stop:     stop,
		now:      time.Now,
		snap:     session.Snapshot(),
		search:   search,
		input:    input,
		path:     path,
		thread:   viewport.New(60, 20),
		width:    100,
		height:   30,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.start(), waitForChange(m.changes), textinput.Blink}
	if m.toasts != nil {
		cmds = append(cmds, waitForToast(m.toasts.C()))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.renderThread()

	case startedMsg:
		m.started = true
		m.startErr = msg.err
		m.refresh()

	case changeMsg:
		m.refresh()
		cmds = append(cmds, waitForChange(m.changes))

	case closedMsg:
		m.refresh()

	case toastMsg:
		n := chatapp.Notification(msg)
		m.notes = append(m.notes, toast{note: n, expires: m.now().Add(toastTTL)})
		if len(m.notes) > 3 {
			m.notes = m.notes[len(m.notes)-3:]
		}
		cmds = append(cmds, waitForToast(m.toasts.C()), tea.Tick(toastTTL, func(time.Time) tea.Msg { return expireMsg{} }))

	case expireMsg:
		now := m.now()
		kept := m.notes[:0]
		for _, t := range m.notes {
			if t.expires.After(now) {
				kept = append(kept, t)
			}
		}
		m.notes = kept

	case sentMsg:
		if msg.err == nil {
			m.input.SetValue("")
		}
		m.refresh()

	case pickedMsg:
		if msg.err == nil {
			m.picking = false
			m.path.SetValue("")
			m.path.Blur()
			m.input.Focus()
		}
		m.refresh()

	case actionMsg:
		m.refresh()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.stop()
		return m, tea.Quit
	}

	if m.snap.Composer.DialogOpen {
		switch msg.String() {
		case "enter":
			return m, m.confirmAttachment()
		case "esc":
			m.composer.CancelAttachment()
			m.refresh()
		}
		return m, nil
	}

	if m.picking {
		switch msg.String() {
		case "esc":
			m.picking = false
			m.path.Blur()
			m.input.Focus()
			return m, nil
		case "enter":
			p := strings.TrimSpace(m.path.Value())
			if p == "" {
				return m, nil
			}
			return m, m.pick(p)
		}
		var cmd tea.Cmd
		m.path, cmd = m.path.Update(msg)
		return m, cmd
	}

	if m.searching {
		switch msg.String() {
		case "esc", "enter":
			m.searching = false
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.session.SetQuery(m.search.Value())
		m.cursor = 0
		m.refresh()
		return m, cmd
	}

	if msg.String() == "tab" {
		m.toggleFocus()
		return m, nil
	}

	switch m.focus {
	case paneSidebar:
		switch msg.String() {
		case "q":
			m.stop()
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.snap.Conversations)-1 {
				m.cursor++
			}
		case "/":
			m.searching = true
			m.search.Focus()
			return m, textinput.Blink
		case "r":
			return m, m.refreshList()
		case "enter", "l", "right":
			if m.cursor < len(m.snap.Conversations) {
				id := m.snap.Conversations[m.cursor].ID
				m.focus = paneChat
				m.input.Focus()
				return m, m.selectConversation(id)
			}
		}
		return m, nil

	default:
		switch msg.String() {
		case "esc":
			m.toggleFocus()
			return m, nil
		case "ctrl+o":
			m.picking = true
			m.input.Blur()
			m.path.Focus()
			return m, textinput.Blink
		case "ctrl+r":
			if m.composer.ReopenAttachment() {
				m.refresh()
			}
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.thread, cmd = m.thread.Update(msg)
			return m, cmd
		case "enter":
			if strings.TrimSpace(m.input.Value()) == "" || m.snap.Composer.State == chatapp.ComposerSending {
				return m, nil
			}
			m.composer.SetInput(m.input.Value())
			return m, m.sendText()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.composer.SetInput(m.input.Value())
		return m, cmd
	}
}

func (m *Model) toggleFocus() {
	if m.focus == paneSidebar {
		m.focus = paneChat
		m.input.Focus()
		return
	}
	m.focus = paneSidebar
	m.input.Blur()
}

// refresh pulls a new snapshot and keeps the cursor on the active
// conversation when the list reorders.
func (m *Model) refresh() {
	m.snap = m.session.Snapshot()
	if m.snap.ActiveID != "" && m.focus == paneChat {
		for i, c := range m.snap.Conversations {
			if c.ID == m.snap.ActiveID {
				m.cursor = i
				break
			}
		}
	}
	if m.cursor >= len(m.snap.Conversations) {
		m.cursor = max(0, len(m.snap.Conversations)-1)
	}
	m.renderThread()
}

func (m *Model) layout() {
	sidebar := m.sidebarWidth()
	w := m.width - sidebar - 6
	if w < 20 {
		w = 20
	}
	h := m.height - 9
	if h < 5 {
		h = 5
	}
	m.thread.Width = w
	m.thread.Height = h
	m.input.Width = w - 4
	m.search.Width = sidebar - 6
}

func (m Model) sidebarWidth() int {
	w := m.width / 3
	if w < 28 {
		w = 28
	}
	return w
}

func (m Model) start() tea.Cmd {
	return func() tea.Msg {
		return startedMsg{err: m.session.Start(m.ctx)}
	}
}

func (m Model) selectConversation(id string) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{err: m.session.Select(m.ctx, id)}
	}
}

func (m Model) refreshList() tea.Cmd {
	return func() tea.Msg {
		return actionMsg{err: m.session.Refresh(m.ctx)}
	}
}

func (m Model) sendText() tea.Cmd {
	return func() tea.Msg {
		return sentMsg{err: m.composer.SendText(m.ctx)}
	}
}

func (m Model) pick(path string) tea.Cmd {
	return func() tea.Msg {
		return pickedMsg{err: m.composer.PickAttachment(path)}
	}
}

func (m Model) confirmAttachment() tea.Cmd {
	return func() tea.Msg {
		return actionMsg{err: m.composer.ConfirmAttachment(m.ctx)}
	}
}

func waitForChange(ch <-chan chatapp.Change) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return closedMsg{}
		}
		return changeMsg{}
	}
}

func waitForToast(ch <-chan chatapp.Notification) tea.Cmd {
	return func() tea.Msg {
		return toastMsg(<-ch)
	}
}
