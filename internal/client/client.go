package client

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/Studyhall/internal/dns"
	"github.com/BioHazard786/Studyhall/internal/protocol"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMessageSize   = 64 * 1024
	handshakeTimeout = 10 * time.Second
)

// Options configures Dial.
type Options struct {
	ServerURL string

	// UserID is offered to the server as the connection id. The server may
	// pick another one if it is taken; ID reports the final value.
	UserID string

	// Codec is the preferred wire codec. JSON is used if the server does not
	// accept it.
	Codec protocol.Codec

	// Resolver, when set, resolves the server host with public DNS fallback.
	Resolver *dns.Resolver
}

// Client is a signaling connection from the CLI to the server.
type Client struct {
	conn     *websocket.Conn
	codec    protocol.Codec
	id       string
	incoming chan protocol.Frame
	outgoing chan []byte
	done     chan struct{}
	once     sync.Once
}

// Dial connects to the signaling server and waits for it to announce the
// connection id.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	u, err := url.Parse(opts.ServerURL)
	if err != nil {
		return nil, WrapError("dial", err, "invalid server url")
	}
	if opts.UserID != "" {
		q := u.Query()
		q.Set("userId", opts.UserID)
		u.RawQuery = q.Encode()
	}

	codec := opts.Codec
	if codec == nil {
		codec = protocol.JSONCodec{}
	}

	dialer := websocket.Dialer{
		Subprotocols:     []string{codec.Subprotocol()},
		HandshakeTimeout: handshakeTimeout,
		Proxy:            websocket.DefaultDialer.Proxy,
	}
	if opts.Resolver != nil {
		dialer.NetDialContext = opts.Resolver.DialContext
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, NewError("dial", err)
	}

	c := &Client{
		conn:     conn,
		codec:    protocol.CodecFor(conn.Subprotocol()),
		incoming: make(chan protocol.Frame, 32),
		outgoing: make(chan []byte, 32),
		done:     make(chan struct{}),
	}

	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, err
	}

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()
	return c, nil
}

func (c *Client) handshake() error {
	c.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return NewError("handshake", err)
	}

	frame, err := c.codec.Decode(data)
	if err != nil {
		return NewError("handshake", err)
	}
	if frame.Event != protocol.EventConnected {
		return WrapError("handshake", ErrHandshake, "first event was "+frame.Event)
	}

	var hello protocol.Connected
	if err := c.codec.Unmarshal(frame.Data, &hello); err != nil || hello.ID == "" {
		return NewError("handshake", ErrHandshake)
	}
	c.id = hello.ID
	return nil
}

// ID is the connection id assigned by the server.
func (c *Client) ID() string {
	return c.id
}

// Codec is the codec negotiated with the server.
func (c *Client) Codec() protocol.Codec {
	return c.codec
}

// Incoming returns the channel of frames from the server. It is closed when
// the connection ends.
func (c *Client) Incoming() <-chan protocol.Frame {
	return c.incoming
}

// Decode unmarshals a frame's payload.
func (c *Client) Decode(frame protocol.Frame, v any) error {
	if err := c.codec.Unmarshal(frame.Data, v); err != nil {
		return WrapError("decode", err, frame.Event)
	}
	return nil
}

// Send queues an event for the server.
func (c *Client) Send(event string, payload any) error {
	data, err := c.codec.Encode(event, payload)
	if err != nil {
		return WrapError("encode", err, event)
	}

	select {
	case <-c.done:
		return NewError("send", ErrClosed)
	default:
	}

	select {
	case c.outgoing <- data:
		return nil
	case <-c.done:
		return NewError("send", ErrClosed)
	}
}

// Close sends a close frame and shuts the connection down.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// Done is closed once Close has been called or the connection dropped.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
		c.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := c.codec.Decode(data)
		if err != nil {
			continue
		}

		select {
		case c.incoming <- frame:
		case <-c.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
