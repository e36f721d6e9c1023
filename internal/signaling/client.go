package signaling

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/Studyhall/internal/protocol"
)

// Transport holds the per-connection keep-alive and buffering limits.
type Transport struct {
	// Time allowed to write a frame to the peer.
	WriteWait time.Duration

	// Time allowed to read the next pong from the peer.
	PongWait time.Duration

	// Send pings with this period. Must be less than PongWait.
	PingPeriod time.Duration

	// Maximum frame size allowed from the peer.
	MaxMessageSize int64

	// Outbound events queued per connection before new ones are dropped.
	SendBuffer int
}

func DefaultTransport() Transport {
	return Transport{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     25 * time.Second,
		MaxMessageSize: 64 * 1024, // enough for SDP and code snippets
		SendBuffer:     256,
	}
}

// Client is a single WebSocket connection.
type Client struct {
	// ID is assigned by Hub.Attach before the pumps start.
	ID string

	hub   *Hub
	conn  *websocket.Conn
	codec protocol.Codec
	opts  Transport

	// send is drained by WritePump. mu guards send against Close.
	mu     sync.Mutex
	send   chan protocol.Outbound
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, codec protocol.Codec, opts Transport) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		codec: codec,
		opts:  opts,
		send:  make(chan protocol.Outbound, opts.SendBuffer),
	}
}

// Deliver queues an event for WritePump. It never blocks and reports false
// once the client is closed or its queue is full.
func (c *Client) Deliver(out protocol.Outbound) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- out:
		return true
	default:
		return false
	}
}

// Close stops WritePump, which then sends a close frame. Calling it again is
// a no-op.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump pumps frames from the connection to the hub. It runs in its own
// goroutine and is the only reader of the connection.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.Unregister <- c.ID:
		case <-c.hub.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("connection closed unexpectedly", "conn", c.ID, "err", err)
			}
			return
		}

		frame, err := c.codec.Decode(data)
		if err != nil {
			if errors.Is(err, protocol.ErrEmptyEvent) {
				slog.Debug("dropping frame without event", "conn", c.ID)
			} else {
				slog.Debug("dropping undecodable frame", "conn", c.ID, "codec", c.codec.Name(), "err", err)
			}
			continue
		}

		req := Request{ConnID: c.ID, Event: frame.Event, Data: frame.Data, Codec: c.codec}
		select {
		case c.hub.Inbound <- req:
		case <-c.hub.Done():
			return
		}
	}
}

// WritePump pumps queued events to the connection and keeps it alive with
// pings. It is the only writer of the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case out, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			frame, err := c.codec.Encode(out.Event, out.Payload)
			if err != nil {
				slog.Error("failed to encode event", "conn", c.ID, "event", out.Event, "err", err)
				continue
			}
			if err := c.conn.WriteMessage(c.codec.FrameType(), frame); err != nil {
				slog.Debug("write failed", "conn", c.ID, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
