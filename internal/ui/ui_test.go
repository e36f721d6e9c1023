package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/Studyhall/internal/protocol"
)

type actionLog struct {
	sent   []string
	typing []bool
	err    error
}

func (a *actionLog) actions() ChatActions {
	return ChatActions{
		Send: func(content string) error {
			a.sent = append(a.sent, content)
			return a.err
		},
		Typing: func(typing bool) { a.typing = append(a.typing, typing) },
	}
}

func typeText(m *ChatModel, s string) []tea.Cmd {
	var cmds []tea.Cmd
	for _, r := range s {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		cmds = append(cmds, cmd)
	}
	return cmds
}

func TestChatModel_TypingAnnouncedOnce(t *testing.T) {
	log := &actionLog{}
	m := NewChatModel("notes", "ada", log.actions())

	typeText(m, "hello")
	assert.Equal(t, []bool{true}, log.typing)
	assert.Equal(t, "hello", m.input.Value())
}

func TestChatModel_StoppedTypingAfterIdle(t *testing.T) {
	log := &actionLog{}
	m := NewChatModel("notes", "ada", log.actions())

	clock := time.Unix(100, 0)
	m.now = func() time.Time { return clock }
	typeText(m, "a")
	first := m.lastInput

	clock = clock.Add(time.Second)
	typeText(m, "b")

	// the tick scheduled by the first keystroke is stale
	m.Update(typingIdleMsg{at: first})
	assert.Equal(t, []bool{true}, log.typing)

	m.Update(typingIdleMsg{at: m.lastInput})
	assert.Equal(t, []bool{true, false}, log.typing)

	m.Update(typingIdleMsg{at: m.lastInput})
	assert.Equal(t, []bool{true, false}, log.typing, "stop is only sent once")
}

func TestChatModel_EnterSendsAndStopsTyping(t *testing.T) {
	log := &actionLog{}
	m := NewChatModel("notes", "ada", log.actions())

	typeText(m, "  hi there ")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"hi there"}, log.sent)
	assert.Equal(t, []bool{true, false}, log.typing)
	assert.Empty(t, m.input.Value())

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Len(t, log.sent, 1, "empty input is not sent")
}

func TestChatModel_SendFailureShownInStatus(t *testing.T) {
	log := &actionLog{err: errors.New("connection closed")}
	m := NewChatModel("notes", "ada", log.actions())

	typeText(m, "x")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.status, "connection closed")
}

func TestChatModel_HistoryAndMessages(t *testing.T) {
	m := NewChatModel("notes", "ada", ChatActions{})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})

	m.Update(HistoryMsg{
		{ID: "1", Sender: "bob", Content: "first", Timestamp: "2026-01-01T10:00:00.000Z", Kind: protocol.KindText},
	})
	m.Update(ChatMessageMsg{ID: "2", Sender: "ada", Content: "```go\nx := 1\n```", Kind: protocol.KindCode})

	require.Len(t, m.Messages(), 2)
	view := m.View()
	assert.Contains(t, view, "first")
	assert.Contains(t, view, "x := 1")
}

func TestChatModel_TypingIndicator(t *testing.T) {
	m := NewChatModel("notes", "ada", ChatActions{})

	m.Update(TypingMsg{UserID: "b", Name: "Bob", Typing: true})
	m.Update(TypingMsg{UserID: "c", Name: "Cy", Typing: true})
	assert.Equal(t, "Bob, Cy are typing...", m.typingLine())

	m.Update(TypingMsg{UserID: "c", Typing: false})
	assert.Equal(t, "Bob is typing...", m.typingLine())

	m.Update(PresenceMsg{Name: "Cy", Joined: false})
	assert.Equal(t, "Cy left the room", m.status)
}

func TestChatModel_QuitStopsTyping(t *testing.T) {
	log := &actionLog{}
	m := NewChatModel("notes", "ada", log.actions())
	typeText(m, "draft")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, []bool{true, false}, log.typing)
	assert.Empty(t, m.View())
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "fmt.Println(1)", stripFences("```go\nfmt.Println(1)\n```"))
	assert.Equal(t, "a()\nb()", stripFences("```\na()\nb()\n```"))
	assert.Equal(t, "x := 1", stripFences("```x := 1```"))
}

func TestParticipantsView(t *testing.T) {
	out := ParticipantsView([]protocol.Participant{
		{ID: "a", Name: "Cozy Otter", IsHost: true},
		{ID: "b", Name: "Brave Fox"},
	}, "b")

	assert.Contains(t, out, "Cozy Otter")
	assert.Contains(t, out, "Brave Fox (you)")
	assert.Contains(t, out, "host")

	assert.Contains(t, ParticipantsView(nil, "b"), "Nobody else")
}

func TestSessionSummaryView(t *testing.T) {
	out := SessionSummaryView("Session", SessionSummary{
		RoomID:      "r1",
		Role:        "host",
		Duration:    90 * time.Second,
		PeersSeen:   3,
		Connected:   2,
		HostChanges: 1,
		EndedBy:     "host ended the room",
	})

	for _, want := range []string{"r1", "host", "1m30s", "host ended the room"} {
		assert.True(t, strings.Contains(out, want), "summary should contain %q", want)
	}
}

func TestRoomView(t *testing.T) {
	out := RoomView("Room created", "algebra-101", "host-1")

	assert.Contains(t, out, IconRoom)
	assert.Contains(t, out, "Room created")
	assert.Contains(t, out, "algebra-101")
	assert.Contains(t, out, "host-1")
}
