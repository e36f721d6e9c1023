package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// WebSocket subprotocols a client can ask for. A connection that negotiates
// none of them speaks JSON.
const (
	SubprotocolJSON    = "studyhall.json"
	SubprotocolMsgpack = "studyhall.msgpack"
)

// Subprotocols lists the supported subprotocols in server preference order.
var Subprotocols = []string{SubprotocolMsgpack, SubprotocolJSON}

var ErrEmptyEvent = errors.New("frame has no event name")

// Frame is a decoded envelope whose data is still in codec form.
type Frame struct {
	Event string
	Data  []byte
}

// Codec turns envelopes into WebSocket frames and back. Every connection owns
// one, so payloads relayed between two clients are re-encoded in the
// receiver's codec.
type Codec interface {
	Name() string
	Subprotocol() string
	FrameType() int
	Encode(event string, payload any) ([]byte, error)
	Decode(b []byte) (Frame, error)
	Unmarshal(data []byte, v any) error
}

// CodecFor returns the codec for a negotiated subprotocol.
func CodecFor(subprotocol string) Codec {
	if subprotocol == SubprotocolMsgpack {
		return MsgpackCodec{}
	}
	return JSONCodec{}
}

// CodecByName resolves a codec from its short name ("json" or "msgpack").
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

type jsonFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// JSONCodec sends text frames shaped {"event": ..., "data": ...}.
type JSONCodec struct{}

func (JSONCodec) Name() string        { return "json" }
func (JSONCodec) Subprotocol() string { return SubprotocolJSON }
func (JSONCodec) FrameType() int      { return websocket.TextMessage }

func (JSONCodec) Encode(event string, payload any) ([]byte, error) {
	return json.Marshal(outFrame{Event: event, Data: payload})
}

func (JSONCodec) Decode(b []byte) (Frame, error) {
	var f jsonFrame
	if err := json.Unmarshal(b, &f); err != nil {
		return Frame{}, fmt.Errorf("decode json frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, ErrEmptyEvent
	}
	return Frame{Event: f.Event, Data: f.Data}, nil
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

type msgpackFrame struct {
	Event string             `json:"event"`
	Data  msgpack.RawMessage `json:"data,omitempty"`
}

// MsgpackCodec sends binary frames holding the same envelope in MessagePack.
// Struct fields are keyed by their json tags so both codecs share one set of
// payload types.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string        { return "msgpack" }
func (MsgpackCodec) Subprotocol() string { return SubprotocolMsgpack }
func (MsgpackCodec) FrameType() int      { return websocket.BinaryMessage }

func (MsgpackCodec) Encode(event string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(outFrame{Event: event, Data: payload}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c MsgpackCodec) Decode(b []byte) (Frame, error) {
	var f msgpackFrame
	if err := c.Unmarshal(b, &f); err != nil {
		return Frame{}, fmt.Errorf("decode msgpack frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, ErrEmptyEvent
	}
	return Frame{Event: f.Event, Data: f.Data}, nil
}

func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}
