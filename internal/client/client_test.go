package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/Studyhall/internal/config"
	"github.com/BioHazard786/Studyhall/internal/protocol"
	"github.com/BioHazard786/Studyhall/internal/server"
	"github.com/BioHazard786/Studyhall/internal/signaling"
)

func startServer(t *testing.T) string {
	t.Helper()
	cfg := &config.Server{
		AllowedOrigins: []string{"*"},
		WSPath:         "/ws",
		PingInterval:   time.Second,
		PongWait:       2 * time.Second,
		MaxMessageSize: config.DefaultMaxMessageSize,
		SendBuffer:     16,
	}
	hub := signaling.NewHub(signaling.NewMemoryRoomStore(), signaling.NewMemoryChatStore())
	go hub.Run()

	srv := httptest.NewServer(server.NewRouter(hub, cfg))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func next(t *testing.T, c *Client) protocol.Frame {
	t.Helper()
	select {
	case f, ok := <-c.Incoming():
		require.True(t, ok, "connection closed")
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame from server")
	}
	return protocol.Frame{}
}

func TestDial_NegotiatesCodecAndID(t *testing.T) {
	url := startServer(t)

	for _, codec := range []protocol.Codec{protocol.JSONCodec{}, protocol.MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			c, err := Dial(context.Background(), Options{ServerURL: url, UserID: "user-" + codec.Name(), Codec: codec})
			require.NoError(t, err)
			defer c.Close()

			assert.Equal(t, "user-"+codec.Name(), c.ID())
			assert.Equal(t, codec.Name(), c.Codec().Name())

			require.NoError(t, c.Send(protocol.EventCreateRoom, protocol.RoomRequest{RoomID: "room-" + codec.Name(), UserID: c.ID()}))
			f := next(t, c)
			require.Equal(t, protocol.EventRoomCreated, f.Event)

			var created protocol.RoomEvent
			require.NoError(t, c.Decode(f, &created))
			assert.Equal(t, "room-"+codec.Name(), created.RoomID)
		})
	}
}

func TestDial_GeneratedIDWhenNoneOffered(t *testing.T) {
	url := startServer(t)

	c, err := Dial(context.Background(), Options{ServerURL: url})
	require.NoError(t, err)
	defer c.Close()
	assert.NotEmpty(t, c.ID())
}

func TestDial_RejectsServerWithoutHandshake(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"hello"}`))
		conn.ReadMessage()
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), Options{ServerURL: "ws" + strings.TrimPrefix(srv.URL, "http")})
	assert.ErrorIs(t, err, ErrHandshake)
}

func TestSendAfterClose(t *testing.T) {
	url := startServer(t)

	c, err := Dial(context.Background(), Options{ServerURL: url})
	require.NoError(t, err)
	c.Close()

	err = c.Send(protocol.EventTyping, protocol.RoomRequest{RoomID: "r", UserID: c.ID()})
	assert.ErrorIs(t, err, ErrClosed)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("done not closed")
	}
}
