package signaling

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/BioHazard786/Studyhall/internal/protocol"
)

//go:generate mockgen -source=registry.go -destination=mock_endpoint_test.go -package=signaling

// Endpoint is the transport side of a registered connection.
type Endpoint interface {
	// Deliver queues an event without blocking. It reports false when the
	// event was dropped.
	Deliver(out protocol.Outbound) bool

	// Close stops the endpoint's writer. It is called once, after the
	// connection has been unregistered.
	Close()
}

// VideoChannel is the broadcast channel of a video room.
func VideoChannel(roomID string) string { return "video:" + roomID }

// ChatChannel is the broadcast channel of a collaboration room.
func ChatChannel(roomID string) string { return "chat:" + roomID }

type set map[string]struct{}

// Registry tracks live connections and their channel subscriptions.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]Endpoint
	channels  map[string]set // channel -> connection ids
	subs      map[string]set // connection id -> channels
}

func NewRegistry() *Registry {
	return &Registry{
		endpoints: make(map[string]Endpoint),
		channels:  make(map[string]set),
		subs:      make(map[string]set),
	}
}

// Register adds a connection under id. It returns false if id is taken.
func (r *Registry) Register(id string, ep Endpoint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.endpoints[id]; taken {
		return false
	}
	r.endpoints[id] = ep
	r.subs[id] = make(set)
	return true
}

// Unregister removes a connection and all of its subscriptions. It returns
// the endpoint and the channels the connection was subscribed to.
func (r *Registry) Unregister(id string) (Endpoint, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, ok := r.endpoints[id]
	if !ok {
		return nil, nil
	}
	delete(r.endpoints, id)

	channels := make([]string, 0, len(r.subs[id]))
	for ch := range r.subs[id] {
		channels = append(channels, ch)
		r.removeMember(ch, id)
	}
	delete(r.subs, id)
	sort.Strings(channels)
	return ep, channels
}

func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.endpoints[id]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.endpoints)
}

// SendTo queues an event for one connection. Unknown ids and full queues are
// logged and reported as false; nothing is retried.
func (r *Registry) SendTo(id, event string, payload any) bool {
	r.mu.RLock()
	ep, ok := r.endpoints[id]
	r.mu.RUnlock()

	if !ok {
		slog.Debug("dropping event for unknown connection", "conn", id, "event", event)
		return false
	}
	if !ep.Deliver(protocol.Outbound{Event: event, Payload: payload}) {
		slog.Warn("dropping event, send queue full", "conn", id, "event", event)
		return false
	}
	return true
}

// JoinChannel subscribes a registered connection to a channel.
func (r *Registry) JoinChannel(id, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.subs[id]
	if !ok {
		return
	}
	subs[channel] = struct{}{}
	members, ok := r.channels[channel]
	if !ok {
		members = make(set)
		r.channels[channel] = members
	}
	members[id] = struct{}{}
}

func (r *Registry) LeaveChannel(id, channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if subs, ok := r.subs[id]; ok {
		delete(subs, channel)
	}
	r.removeMember(channel, id)
}

// CloseChannel drops every subscription to channel.
func (r *Registry) CloseChannel(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.channels[channel] {
		delete(r.subs[id], channel)
	}
	delete(r.channels, channel)
}

// Members returns the connections subscribed to channel, sorted.
func (r *Registry) Members(channel string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, 0, len(r.channels[channel]))
	for id := range r.channels[channel] {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}

// Channels returns the channels a connection is subscribed to, sorted.
func (r *Registry) Channels(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]string, 0, len(r.subs[id]))
	for ch := range r.subs[id] {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	return channels
}

// Endpoints returns a snapshot of every registered endpoint keyed by id.
func (r *Registry) Endpoints() map[string]Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Endpoint, len(r.endpoints))
	for id, ep := range r.endpoints {
		out[id] = ep
	}
	return out
}

// removeMember must be called with r.mu held.
func (r *Registry) removeMember(channel, id string) {
	members, ok := r.channels[channel]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(r.channels, channel)
	}
}
