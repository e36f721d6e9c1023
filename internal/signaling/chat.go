package signaling

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BioHazard786/Studyhall/internal/protocol"
)

// TimestampLayout is the ISO-8601 form used for message timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// IDGenerator hands out message ids derived from the wall clock in
// milliseconds. Ids never repeat or go backwards, even within one millisecond.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

// ChatController owns the collaboration message logs and the presence and
// typing broadcasts that go with them.
type ChatController struct {
	chats ChatStore
	conns *Registry
	ids   *IDGenerator
	now   func() time.Time
}

func NewChatController(chats ChatStore, conns *Registry) *ChatController {
	return &ChatController{
		chats: chats,
		conns: conns,
		ids:   NewIDGenerator(time.Now),
		now:   time.Now,
	}
}

// Join subscribes the connection and replays the room's log to it.
func (c *ChatController) Join(connID string, req protocol.RoomRequest) ([]Emission, error) {
	if req.RoomID == "" || req.UserID == "" {
		return nil, missingFields("roomId and userId are required")
	}

	channel := ChatChannel(req.RoomID)
	c.conns.JoinChannel(connID, channel)
	c.chats.Ensure(req.RoomID)

	messages := c.chats.Messages(req.RoomID)
	slog.Debug("user joined collaboration", "room", req.RoomID, "user", req.UserID, "messages", len(messages))

	return []Emission{
		toConn(connID, protocol.EventExistingMessages, protocol.ExistingMessages{
			RoomID:   req.RoomID,
			Messages: messages,
		}),
		toChannel(channel, protocol.EventUserJoined, protocol.UserEvent{UserID: connID}, connID),
	}, nil
}

// Post appends a message and broadcasts it to the whole room, sender included.
func (c *ChatController) Post(connID string, req protocol.MessageRequest) ([]Emission, error) {
	if req.RoomID == "" || req.Message == nil || req.Message.Content == "" {
		return nil, missingFields("roomId and message content are required")
	}

	msg := *req.Message
	if msg.ID == "" {
		msg.ID = c.ids.Next()
	}
	if msg.Timestamp == "" {
		msg.Timestamp = c.now().UTC().Format(TimestampLayout)
	}
	if msg.Kind == "" {
		msg.Kind = msg.TypeHint()
	}
	msg.Kind = normalizeKind(msg.Kind, msg.Content)

	n := c.chats.Append(req.RoomID, msg)
	slog.Debug("message stored", "room", req.RoomID, "id", msg.ID, "log", n)

	return []Emission{toChannel(ChatChannel(req.RoomID), protocol.EventMessage, msg)}, nil
}

// Typing tells everyone else in the room that the sender started or stopped typing.
func (c *ChatController) Typing(connID string, req protocol.RoomRequest, typing bool) ([]Emission, error) {
	if req.RoomID == "" || req.UserID == "" {
		return nil, missingFields("roomId and userId are required")
	}

	event := protocol.EventUserStoppedTyping
	if typing {
		event = protocol.EventUserTyping
	}
	return []Emission{
		toChannel(ChatChannel(req.RoomID), event, protocol.Typing{UserID: connID, IsTyping: typing}, connID),
	}, nil
}

// Leave announces a disconnect to the collaboration rooms the connection
// was subscribed to.
func (c *ChatController) Leave(connID string, channels []string) []Emission {
	var out []Emission
	for _, ch := range channels {
		if !strings.HasPrefix(ch, "chat:") {
			continue
		}
		out = append(out, toChannel(ch, protocol.EventUserLeft, protocol.UserEvent{UserID: connID}, connID))
	}
	return out
}

func normalizeKind(kind, content string) string {
	switch kind {
	case protocol.KindText, protocol.KindCode:
		return kind
	case "":
		if strings.Contains(content, "```") {
			return protocol.KindCode
		}
	}
	return protocol.KindText
}
