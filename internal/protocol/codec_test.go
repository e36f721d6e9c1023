package protocol

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecForSubprotocol(t *testing.T) {
	assert.Equal(t, "msgpack", CodecFor(SubprotocolMsgpack).Name())
	assert.Equal(t, "json", CodecFor(SubprotocolJSON).Name())
	assert.Equal(t, "json", CodecFor("").Name())

	assert.Equal(t, websocket.BinaryMessage, MsgpackCodec{}.FrameType())
	assert.Equal(t, websocket.TextMessage, JSONCodec{}.FrameType())
}

func TestCodecByName(t *testing.T) {
	c, err := CodecByName("msgpack")
	require.NoError(t, err)
	assert.Equal(t, SubprotocolMsgpack, c.Subprotocol())

	c, err = CodecByName("")
	require.NoError(t, err)
	assert.Equal(t, SubprotocolJSON, c.Subprotocol())

	_, err = CodecByName("xml")
	assert.Error(t, err)
}

func TestJSONDecodeRequest(t *testing.T) {
	c := JSONCodec{}
	frame, err := c.Decode([]byte(`{"event":"join-room","data":{"roomId":"r1","userId":"u1"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventJoinRoom, frame.Event)

	var req RoomRequest
	require.NoError(t, c.Unmarshal(frame.Data, &req))
	assert.Equal(t, RoomRequest{RoomID: "r1", UserID: "u1"}, req)
}

func TestJSONEncodeOmitsEmptyData(t *testing.T) {
	b, err := JSONCodec{}.Encode(EventRoomEnded, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"room-ended"}`, string(b))
}

func TestDecodeRejectsMissingEvent(t *testing.T) {
	_, err := JSONCodec{}.Decode([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, ErrEmptyEvent)

	_, err = JSONCodec{}.Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestMsgpackUsesJSONFieldNames(t *testing.T) {
	c := MsgpackCodec{}
	b, err := c.Encode(EventMessage, ChatMessage{ID: "1", Sender: "ana", Content: "hi", Kind: KindText})
	require.NoError(t, err)

	frame, err := c.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, EventMessage, frame.Event)

	var generic map[string]any
	require.NoError(t, c.Unmarshal(frame.Data, &generic))
	assert.Equal(t, "ana", generic["sender"])
	assert.Equal(t, "hi", generic["content"])
	assert.NotContains(t, generic, "timestamp")
}

// An opaque signal decoded from one codec must survive re-encoding in the other.
func TestSignalCrossesCodecs(t *testing.T) {
	in := []byte(`{"event":"offer","data":{"roomId":"r","userId":"a","targetUserId":"b","signal":{"type":"offer","sdp":"v=0\r\n"}}}`)
	frame, err := JSONCodec{}.Decode(in)
	require.NoError(t, err)

	var req SignalRequest
	require.NoError(t, JSONCodec{}.Unmarshal(frame.Data, &req))

	out, err := MsgpackCodec{}.Encode(EventOffer, SignalRelay{UserID: req.UserID, Signal: req.Signal})
	require.NoError(t, err)

	relayed, err := MsgpackCodec{}.Decode(out)
	require.NoError(t, err)

	var got SignalRelay
	require.NoError(t, MsgpackCodec{}.Unmarshal(relayed.Data, &got))
	assert.Equal(t, "a", got.UserID)

	signal, ok := got.Signal.(map[string]any)
	require.True(t, ok, "signal should decode as a map, got %T", got.Signal)
	assert.Equal(t, "offer", signal["type"])
	assert.Equal(t, "v=0\r\n", signal["sdp"])
	assert.Nil(t, got.Candidate)
}

func TestChatMessageKeepsUnknownFields(t *testing.T) {
	in := []byte(`{"event":"message","data":{"id":42,"sender":"A","content":"hi","type":"text","meta":{"pinned":true}}}`)
	frame, err := JSONCodec{}.Decode(in)
	require.NoError(t, err)

	var msg ChatMessage
	require.NoError(t, JSONCodec{}.Unmarshal(frame.Data, &msg))
	assert.Equal(t, "42", msg.ID)
	assert.Equal(t, "text", msg.TypeHint())
	assert.Equal(t, map[string]any{"type": "text", "meta": map[string]any{"pinned": true}}, msg.Extra)

	// relayed to a msgpack client the extra fields come along
	out, err := MsgpackCodec{}.Encode(EventMessage, msg)
	require.NoError(t, err)
	relayed, err := MsgpackCodec{}.Decode(out)
	require.NoError(t, err)

	var got ChatMessage
	require.NoError(t, MsgpackCodec{}.Unmarshal(relayed.Data, &got))
	assert.Equal(t, "42", got.ID)
	assert.Equal(t, "text", got.TypeHint())
	assert.Equal(t, "hi", got.Content)
	assert.Contains(t, got.Extra, "meta")
}

func TestChatMessageWithoutExtras(t *testing.T) {
	var msg ChatMessage
	require.NoError(t, JSONCodec{}.Unmarshal([]byte(`{"sender":"A","content":"hi"}`), &msg))
	assert.Equal(t, ChatMessage{Sender: "A", Content: "hi"}, msg)

	err := JSONCodec{}.Unmarshal([]byte(`{"sender":"A","content":["not","text"]}`), &msg)
	assert.Error(t, err)
}
