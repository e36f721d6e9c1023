package signaling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BioHazard786/Studyhall/internal/protocol"
)

func TestIDGenerator_NeverRepeats(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	g := NewIDGenerator(func() time.Time { return fixed })

	assert.Equal(t, "1700000000000", g.Next())
	assert.Equal(t, "1700000000001", g.Next())
	assert.Equal(t, "1700000000002", g.Next())
}

func TestIDGenerator_ClockGoingBackwards(t *testing.T) {
	now := time.UnixMilli(5000)
	g := NewIDGenerator(func() time.Time { return now })

	assert.Equal(t, "5000", g.Next())
	now = time.UnixMilli(4000)
	assert.Equal(t, "5001", g.Next())
	now = time.UnixMilli(9000)
	assert.Equal(t, "9000", g.Next())
}

func TestNormalizeKind(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		content string
		want    string
	}{
		{"explicit text", protocol.KindText, "```x```", protocol.KindText},
		{"explicit code", protocol.KindCode, "plain", protocol.KindCode},
		{"inferred code", "", "look:\n```go\nx := 1\n```", protocol.KindCode},
		{"inferred text", "", "hello", protocol.KindText},
		{"unknown kind", "image", "```x```", protocol.KindText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeKind(tt.kind, tt.content))
		})
	}
}

func TestChatController_TimestampFormat(t *testing.T) {
	conns := NewRegistry()
	c := NewChatController(NewMemoryChatStore(), conns)
	c.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 8_000_000, time.FixedZone("X", 3600)) }

	out, err := c.Post("a", protocol.MessageRequest{RoomID: "r", Message: &protocol.ChatMessage{Content: "hi"}})
	assert.NoError(t, err)
	assert.Equal(t, "2026-03-04T04:06:07.008Z", out[0].Payload.(protocol.ChatMessage).Timestamp)
}
