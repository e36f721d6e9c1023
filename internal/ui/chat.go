package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/BioHazard786/Studyhall/internal/protocol"
)

// TypingIdle is how long the input may sit unchanged before the room is told
// the user stopped typing.
const TypingIdle = 2 * time.Second

// Messages fed into the chat program with tea.Program.Send.
type (
	HistoryMsg     []protocol.ChatMessage
	ChatMessageMsg protocol.ChatMessage
	StatusMsg      string
)

type PresenceMsg struct {
	Name   string
	Joined bool
}

type TypingMsg struct {
	UserID string
	Name   string
	Typing bool
}

type DisconnectedMsg struct {
	Err error
}

type typingIdleMsg struct{ at time.Time }

// ChatActions connects the model to the signaling client.
type ChatActions struct {
	Send   func(content string) error
	Typing func(typing bool)
}

// ChatModel is the collaboration room TUI: a scrolling log, the list of
// people typing and an input line.
type ChatModel struct {
	roomID  string
	self    string
	actions ChatActions

	input    textinput.Model
	viewport viewport.Model
	ready    bool

	messages []protocol.ChatMessage
	typing   map[string]string
	status   string

	typingSent bool
	lastInput  time.Time
	now        func() time.Time

	quitting bool
}

func NewChatModel(roomID, self string, actions ChatActions) *ChatModel {
	in := textinput.New()
	in.Placeholder = "Message (wrap code in ```)"
	in.Prompt = "> "
	in.CharLimit = 4000
	in.Focus()

	return &ChatModel{
		roomID:  roomID,
		self:    self,
		actions: actions,
		input:   in,
		typing:  make(map[string]string),
		now:     time.Now,
	}
}

func (m *ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-5, 3)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.input.Width = max(msg.Width-4, 10)
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.stopTyping()
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEnter:
			m.submit()
			return m, nil
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
		if m.input.Value() != before {
			cmds = append(cmds, m.keystroke())
		}

	case typingIdleMsg:
		if msg.at.Equal(m.lastInput) {
			m.stopTyping()
		}

	case HistoryMsg:
		m.messages = append([]protocol.ChatMessage(nil), msg...)
		m.refresh()

	case ChatMessageMsg:
		m.messages = append(m.messages, protocol.ChatMessage(msg))
		m.refresh()

	case PresenceMsg:
		verb := "left"
		if msg.Joined {
			verb = "joined"
		}
		m.status = fmt.Sprintf("%s %s the room", msg.Name, verb)

	case TypingMsg:
		if msg.Typing {
			m.typing[msg.UserID] = msg.Name
		} else {
			delete(m.typing, msg.UserID)
		}

	case StatusMsg:
		m.status = string(msg)

	case DisconnectedMsg:
		m.status = "disconnected from server"
		if msg.Err != nil {
			m.status += ": " + msg.Err.Error()
		}
		m.quitting = true
		return m, tea.Quit

	default:
		if m.ready {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// keystroke announces typing on the first change and schedules the idle check.
func (m *ChatModel) keystroke() tea.Cmd {
	if !m.typingSent && m.actions.Typing != nil {
		m.actions.Typing(true)
	}
	m.typingSent = true

	at := m.now()
	m.lastInput = at
	return tea.Tick(TypingIdle, func(time.Time) tea.Msg {
		return typingIdleMsg{at: at}
	})
}

func (m *ChatModel) stopTyping() {
	if !m.typingSent {
		return
	}
	m.typingSent = false
	if m.actions.Typing != nil {
		m.actions.Typing(false)
	}
}

func (m *ChatModel) submit() {
	content := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	m.stopTyping()
	if content == "" {
		return
	}
	if m.actions.Send != nil {
		if err := m.actions.Send(content); err != nil {
			m.status = "send failed: " + err.Error()
		}
	}
}

func (m *ChatModel) refresh() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for _, msg := range m.messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *ChatModel) renderMessage(msg protocol.ChatMessage) string {
	stamp := msg.Timestamp
	if t, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
		stamp = t.Local().Format("15:04")
	}

	sender := SenderStyle.Render(msg.Sender)
	if msg.Sender == m.self {
		sender = SelfStyle.Render(msg.Sender)
	}

	head := fmt.Sprintf("%s %s", MutedStyle.Render("["+stamp+"]"), sender)
	if msg.Kind == protocol.KindCode {
		return head + "\n" + CodeStyle.Render(stripFences(msg.Content))
	}
	return head + ": " + msg.Content
}

// stripFences removes the ``` markers and a language tag line around a
// code message.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], " \t") {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

func (m *ChatModel) typingLine() string {
	if len(m.typing) == 0 {
		return ""
	}
	names := make([]string, 0, len(m.typing))
	for _, n := range m.typing {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) == 1 {
		return names[0] + " is typing..."
	}
	return strings.Join(names, ", ") + " are typing..."
}

func (m *ChatModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s %s", IconChat, m.roomID)))
	b.WriteString("  " + MutedStyle.Render(m.status) + "\n")
	if m.ready {
		b.WriteString(m.viewport.View())
	} else {
		for _, msg := range m.messages {
			b.WriteString(m.renderMessage(msg) + "\n")
		}
	}
	b.WriteString("\n" + MutedStyle.Render(m.typingLine()) + "\n")
	b.WriteString(m.input.View())
	return b.String()
}

// Messages returns what the log currently shows.
func (m *ChatModel) Messages() []protocol.ChatMessage {
	return m.messages
}
