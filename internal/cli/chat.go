package cli

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/BioHazard786/Studyhall/internal/client"
	"github.com/BioHazard786/Studyhall/internal/protocol"
	"github.com/BioHazard786/Studyhall/internal/ui"
)

var flagName string

var chatCmd = &cobra.Command{
	Use:     "chat <room-id>",
	Aliases: []string{"c"},
	Short:   "Open a room's collaboration chat",
	Long: `Open the collaboration chat of a room. The room's history is shown on
entry, messages wrapped in triple backticks are shown as code, and other
members see when you are typing.

Examples:
  studyhall chat algebra-101
  studyhall chat --name Ada algebra-101`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return openChat(cmd.Context(), args[0])
	},
}

func init() {
	chatCmd.Flags().StringVarP(&flagName, "name", "n", "", "Name shown on your messages (default: $USER)")
}

func openChat(ctx context.Context, roomID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sess, err := Connect(ctx, cfg, flagUserID, false)
	if err != nil {
		return err
	}
	defer sess.Close()

	name := flagName
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = shortID(sess.ID())
	}

	c := sess.Client
	req := protocol.RoomRequest{RoomID: roomID, UserID: sess.ID()}
	if err := c.Send(protocol.EventJoinCollaboration, req); err != nil {
		return WrapError("join chat", err, roomID)
	}

	model := ui.NewChatModel(roomID, name, chatActions(c, req, name))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	go pumpChat(c, p.Send)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return WrapError("chat", err, roomID)
	}
	return nil
}

func chatActions(c *client.Client, req protocol.RoomRequest, name string) ui.ChatActions {
	return ui.ChatActions{
		Send: func(content string) error {
			return c.Send(protocol.EventMessage, protocol.MessageRequest{
				RoomID:  req.RoomID,
				Message: &protocol.ChatMessage{Sender: name, Content: content},
			})
		},
		Typing: func(typing bool) {
			event := protocol.EventStoppedTyping
			if typing {
				event = protocol.EventTyping
			}
			_ = c.Send(event, req)
		},
	}
}

// pumpChat feeds server frames into the chat program until the connection
// closes.
func pumpChat(c *client.Client, send func(tea.Msg)) {
	for f := range c.Incoming() {
		if msg := chatMsg(c.Decode, f); msg != nil {
			send(msg)
		}
	}
	send(ui.DisconnectedMsg{})
}

// chatMsg turns a frame into the message the chat model understands. Frames
// it cannot use map to nil.
func chatMsg(decode func(protocol.Frame, any) error, f protocol.Frame) tea.Msg {
	switch f.Event {
	case protocol.EventExistingMessages:
		var m protocol.ExistingMessages
		if decode(f, &m) != nil {
			return nil
		}
		return ui.HistoryMsg(m.Messages)

	case protocol.EventMessage:
		var m protocol.ChatMessage
		if decode(f, &m) != nil {
			return nil
		}
		return ui.ChatMessageMsg(m)

	case protocol.EventUserJoined, protocol.EventUserLeft:
		var u protocol.UserEvent
		if decode(f, &u) != nil {
			return nil
		}
		return ui.PresenceMsg{Name: shortID(u.UserID), Joined: f.Event == protocol.EventUserJoined}

	case protocol.EventUserTyping, protocol.EventUserStoppedTyping:
		var t protocol.Typing
		if decode(f, &t) != nil {
			return nil
		}
		return ui.TypingMsg{UserID: t.UserID, Name: shortID(t.UserID), Typing: t.IsTyping}

	case protocol.EventError:
		var e protocol.ErrorPayload
		if decode(f, &e) != nil {
			return nil
		}
		return ui.StatusMsg(e.Message)
	}
	return nil
}
