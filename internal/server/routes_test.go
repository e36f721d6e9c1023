package server

import (
	"encoding/json"
	"io"
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
	"github.com/BioHazard786/Studyhall/internal/signaling"
)

func newTestServer(t *testing.T) (*httptest.Server, *signaling.Hub) {
	t.Helper()

	cfg := &config.Server{
		Port:           config.DefaultPort,
		AllowedOrigins: []string{"http://localhost:3000"},
		WSPath:         "/ws",
		PingInterval:   time.Second,
		PongWait:       2 * time.Second,
		MaxMessageSize: config.DefaultMaxMessageSize,
		SendBuffer:     16,
	}
	hub := signaling.NewHub(signaling.NewMemoryRoomStore(), signaling.NewMemoryChatStore())
	go hub.Run()

	srv := httptest.NewServer(NewRouter(hub, cfg))
	t.Cleanup(func() {
		srv.Close()
		hub.Stop()
	})
	return srv, hub
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

type testConn struct {
	t     *testing.T
	conn  *websocket.Conn
	codec protocol.Codec
}

func dial(t *testing.T, srv *httptest.Server, query string, codec protocol.Codec) *testConn {
	t.Helper()
	dialer := websocket.Dialer{Subprotocols: []string{codec.Subprotocol()}}
	conn, resp, err := dialer.Dial(wsURL(srv, query), nil)
	require.NoError(t, err)
	require.Equal(t, codec.Subprotocol(), resp.Header.Get("Sec-WebSocket-Protocol"))
	t.Cleanup(func() { conn.Close() })
	return &testConn{t: t, conn: conn, codec: codec}
}

func (c *testConn) send(event string, payload any) {
	c.t.Helper()
	data, err := c.codec.Encode(event, payload)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(c.codec.FrameType(), data))
}

func (c *testConn) expect(event string, v any) {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err)
	assert.Equal(c.t, c.codec.FrameType(), kind)

	frame, err := c.codec.Decode(data)
	require.NoError(c.t, err)
	require.Equal(c.t, event, frame.Event)
	if v != nil {
		require.NoError(c.t, c.codec.Unmarshal(frame.Data, v))
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Signaling server is healthy.", string(body))
}

func TestWebSocket_ConnectedUsesRequestedID(t *testing.T) {
	srv, _ := newTestServer(t)

	a := dial(t, srv, "?userId=alice", protocol.JSONCodec{})
	var hello protocol.Connected
	a.expect(protocol.EventConnected, &hello)
	assert.Equal(t, "alice", hello.ID)

	b := dial(t, srv, "?userId=alice", protocol.JSONCodec{})
	b.expect(protocol.EventConnected, &hello)
	assert.NotEqual(t, "alice", hello.ID)
}

func TestWebSocket_RoomAcrossCodecs(t *testing.T) {
	srv, hub := newTestServer(t)

	host := dial(t, srv, "?userId=host", protocol.MsgpackCodec{})
	host.expect(protocol.EventConnected, nil)
	guest := dial(t, srv, "?userId=guest", protocol.JSONCodec{})
	guest.expect(protocol.EventConnected, nil)

	host.send(protocol.EventCreateRoom, protocol.RoomRequest{RoomID: "r1", UserID: "host"})
	var created protocol.RoomEvent
	host.expect(protocol.EventRoomCreated, &created)
	assert.Equal(t, "r1", created.RoomID)

	guest.send(protocol.EventJoinRoom, protocol.RoomRequest{RoomID: "r1", UserID: "guest"})
	guest.expect(protocol.EventRoomJoined, nil)
	var existing []protocol.Participant
	guest.expect(protocol.EventExistingParticipants, &existing)
	require.Len(t, existing, 1)
	assert.Equal(t, "host", existing[0].ID)
	assert.True(t, existing[0].IsHost)

	var joined protocol.Participant
	host.expect(protocol.EventUserJoined, &joined)
	assert.Equal(t, "guest", joined.ID)

	guest.send(protocol.EventOffer, protocol.SignalRequest{
		RoomID:       "r1",
		UserID:       "guest",
		TargetUserID: "host",
		Signal:       map[string]any{"type": "offer", "sdp": "v=0"},
	})
	var offer protocol.SignalRelay
	host.expect(protocol.EventOffer, &offer)
	assert.Equal(t, "guest", offer.UserID)
	signal, ok := offer.Signal.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "v=0", signal["sdp"])

	stats := hub.Stats()
	assert.Equal(t, 2, stats.Connections)
	assert.Equal(t, 1, stats.Rooms)

	host.conn.Close()
	var newHost protocol.NewHost
	guest.expect(protocol.EventUserLeft, nil)
	guest.expect(protocol.EventNewHost, &newHost)
	assert.Equal(t, "guest", newHost.NewHostID)
}

func TestWebSocket_ErrorReply(t *testing.T) {
	srv, _ := newTestServer(t)

	c := dial(t, srv, "", protocol.JSONCodec{})
	c.expect(protocol.EventConnected, nil)

	c.send(protocol.EventJoinRoom, protocol.RoomRequest{RoomID: "missing", UserID: "x"})
	var e protocol.ErrorPayload
	c.expect(protocol.EventError, &e)
	assert.Equal(t, "Room does not exist", e.Message)
}

func TestWebSocket_RejectsUnknownOrigin(t *testing.T) {
	srv, _ := newTestServer(t)

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://localhost:3000")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), header)
	require.NoError(t, err)
	conn.Close()
}

func TestStats(t *testing.T) {
	srv, _ := newTestServer(t)

	c := dial(t, srv, "?userId=writer", protocol.JSONCodec{})
	c.expect(protocol.EventConnected, nil)
	c.send(protocol.EventJoinCollaboration, protocol.RoomRequest{RoomID: "notes", UserID: "writer"})
	c.expect(protocol.EventExistingMessages, nil)
	c.send(protocol.EventMessage, protocol.MessageRequest{RoomID: "notes", Message: &protocol.ChatMessage{Sender: "writer", Content: "hi"}})
	c.expect(protocol.EventMessage, nil)

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.EqualValues(t, 1, body["connections"])
	assert.EqualValues(t, 1, body["chatRooms"])
	assert.EqualValues(t, 1, body["chatMessages"])
	assert.Equal(t, "dev", body["version"])
}
