package signaling

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/BioHazard786/Studyhall/internal/protocol"
)

var errHandlerPanic = errors.New("handler panicked")

// Request is one decoded inbound frame together with the connection it came from.
type Request struct {
	ConnID string
	Event  string
	Data   []byte
	Codec  protocol.Codec
}

type handlerFunc func(h *Hub, req Request) ([]Emission, error)

// route binds an event to its handler. Failures of events with reply set are
// answered with an error event; the rest are only logged.
type route struct {
	handle handlerFunc
	reply  bool
}

// Stats is a point in time view of the server state.
type Stats struct {
	Connections  int `json:"connections"`
	Rooms        int `json:"rooms"`
	ChatRooms    int `json:"chatRooms"`
	ChatMessages int `json:"chatMessages"`
}

// Hub is the central dispatcher of the signaling server. Every inbound event
// and every disconnect is processed by the single goroutine running Run.
type Hub struct {
	conns *Registry
	rooms RoomStore
	chats ChatStore

	roomCtl *RoomController
	chatCtl *ChatController
	relay   *Relay

	routes map[string]route

	// Inbound carries decoded events from the read pumps.
	Inbound chan Request

	// Unregister carries the ids of connections whose read pump exited.
	Unregister chan string

	done chan struct{}
}

// NewHub creates a Hub on top of the given stores.
func NewHub(rooms RoomStore, chats ChatStore) *Hub {
	conns := NewRegistry()
	h := &Hub{
		conns:      conns,
		rooms:      rooms,
		chats:      chats,
		roomCtl:    NewRoomController(rooms, conns),
		chatCtl:    NewChatController(chats, conns),
		relay:      NewRelay(rooms),
		Inbound:    make(chan Request),
		Unregister: make(chan string),
		done:       make(chan struct{}),
	}
	h.routes = map[string]route{
		protocol.EventCreateRoom: {handle: roomRoute((*RoomController).Create), reply: true},
		protocol.EventJoinRoom:   {handle: roomRoute((*RoomController).Join), reply: true},
		protocol.EventEndRoom:    {handle: roomRoute((*RoomController).End)},

		protocol.EventOffer:        {handle: signalRoute(protocol.EventOffer)},
		protocol.EventAnswer:       {handle: signalRoute(protocol.EventAnswer)},
		protocol.EventICECandidate: {handle: signalRoute(protocol.EventICECandidate)},

		protocol.EventJoinCollaboration: {handle: handleJoinCollaboration, reply: true},
		protocol.EventMessage:           {handle: handleMessage},
		protocol.EventTyping:            {handle: typingRoute(true)},
		protocol.EventStoppedTyping:     {handle: typingRoute(false)},
	}
	return h
}

// Registry exposes the connection registry.
func (h *Hub) Registry() *Registry {
	return h.conns
}

// Attach registers an endpoint and returns the id it was registered under.
// preferred is used when it is not empty and not already taken; otherwise a
// random id is generated. The new connection is told its id right away.
func (h *Hub) Attach(preferred string, ep Endpoint) string {
	id := preferred
	for id == "" || !h.conns.Register(id, ep) {
		if id != "" {
			slog.Debug("requested connection id taken", "conn", id)
		}
		id = uuid.NewString()
	}

	slog.Info("client connected", "conn", id, "clients", h.conns.Len())
	h.conns.SendTo(id, protocol.EventConnected, protocol.Connected{ID: id})
	return id
}

// Run processes inbound events and disconnects until Stop is called.
func (h *Hub) Run() {
	defer h.closeAll()

	for {
		select {
		case req := <-h.Inbound:
			h.Handle(req)

		case id := <-h.Unregister:
			h.Disconnect(id)

		case <-h.done:
			slog.Info("hub stopped")
			return
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Done is closed once Stop has been called.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Handle dispatches one event and delivers whatever it produced. It returns
// the number of events handed to transports.
func (h *Hub) Handle(req Request) int {
	rt, ok := h.routes[req.Event]
	if !ok {
		slog.Debug("ignoring unknown event", "conn", req.ConnID, "event", req.Event)
		return 0
	}

	emissions, err := h.dispatch(rt, req)
	if err != nil {
		evErr := &EventError{Event: req.Event, ConnID: req.ConnID, Err: err}
		switch {
		case errors.Is(err, errHandlerPanic):
			slog.Error("event handler failed", "conn", req.ConnID, "event", req.Event, "err", evErr)
		case errors.Is(err, ErrNotHost):
			slog.Warn("ignoring event from non-host", "conn", req.ConnID, "event", req.Event)
		default:
			slog.Debug("event rejected", "conn", req.ConnID, "event", req.Event, "err", evErr)
		}

		if rt.reply || errors.Is(err, errHandlerPanic) {
			emissions = append(emissions, toConn(req.ConnID, protocol.EventError, protocol.ErrorPayload{
				Message: evErr.UserMessage(),
			}))
		}
	}

	return h.conns.Deliver(emissions)
}

func (h *Hub) dispatch(rt route, req Request) (out []Emission, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("handler panic stack", "stack", string(debug.Stack()))
			out, err = nil, fmt.Errorf("%w: %v", errHandlerPanic, r)
		}
	}()
	return rt.handle(h, req)
}

// Disconnect removes a connection, runs room and chat cleanup, and closes
// the endpoint. Unknown ids are ignored.
func (h *Hub) Disconnect(id string) {
	ep, channels := h.conns.Unregister(id)
	if ep == nil {
		return
	}

	emissions := h.roomCtl.Leave(id)
	emissions = append(emissions, h.chatCtl.Leave(id, channels)...)
	h.conns.Deliver(emissions)
	ep.Close()

	slog.Info("client disconnected", "conn", id, "clients", h.conns.Len())
}

// Stats reads the stores directly; it is safe to call from any goroutine.
func (h *Hub) Stats() Stats {
	return Stats{
		Connections:  h.conns.Len(),
		Rooms:        h.rooms.Len(),
		ChatRooms:    h.chats.Len(),
		ChatMessages: h.chats.MessageCount(),
	}
}

func (h *Hub) closeAll() {
	for id, ep := range h.conns.Endpoints() {
		h.conns.Unregister(id)
		ep.Close()
	}
}

// decode unmarshals the request payload. A payload that cannot be decoded is
// treated as one with missing fields.
func decode[T any](req Request) (T, error) {
	var v T
	if len(req.Data) == 0 {
		return v, nil
	}
	if err := req.Codec.Unmarshal(req.Data, &v); err != nil {
		return v, missingFields(err.Error())
	}
	return v, nil
}

func roomRoute(fn func(*RoomController, string, protocol.RoomRequest) ([]Emission, error)) handlerFunc {
	return func(h *Hub, req Request) ([]Emission, error) {
		body, err := decode[protocol.RoomRequest](req)
		if err != nil {
			return nil, err
		}
		return fn(h.roomCtl, req.ConnID, body)
	}
}

func signalRoute(kind string) handlerFunc {
	return func(h *Hub, req Request) ([]Emission, error) {
		body, err := decode[protocol.SignalRequest](req)
		if err != nil {
			return nil, err
		}
		return h.relay.Forward(kind, req.ConnID, body)
	}
}

func typingRoute(typing bool) handlerFunc {
	return func(h *Hub, req Request) ([]Emission, error) {
		body, err := decode[protocol.RoomRequest](req)
		if err != nil {
			return nil, err
		}
		return h.chatCtl.Typing(req.ConnID, body, typing)
	}
}

func handleJoinCollaboration(h *Hub, req Request) ([]Emission, error) {
	body, err := decode[protocol.RoomRequest](req)
	if err != nil {
		return nil, err
	}
	return h.chatCtl.Join(req.ConnID, body)
}

func handleMessage(h *Hub, req Request) ([]Emission, error) {
	body, err := decode[protocol.MessageRequest](req)
	if err != nil {
		return nil, err
	}
	return h.chatCtl.Post(req.ConnID, body)
}
