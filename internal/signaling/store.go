package signaling

import (
	"slices"
	"sync"
	"time"

	"github.com/BioHazard786/Studyhall/internal/protocol"
)

// Room is a video conference session.
type Room struct {
	// ID is the caller supplied room identifier.
	ID string

	// HostID is the participant allowed to end the room.
	HostID string

	// Participants holds member ids in join order. It always contains HostID.
	Participants []string

	CreatedAt time.Time
}

func (r *Room) Has(id string) bool {
	return slices.Contains(r.Participants, id)
}

// Remove drops id from the participants and reports whether it was present.
func (r *Room) Remove(id string) bool {
	i := slices.Index(r.Participants, id)
	if i < 0 {
		return false
	}
	r.Participants = slices.Delete(r.Participants, i, i+1)
	return true
}

func (r *Room) clone() *Room {
	c := *r
	c.Participants = slices.Clone(r.Participants)
	return &c
}

// RoomStore holds the live video rooms. Get returns a copy; changes are
// written back with Update.
type RoomStore interface {
	Create(room *Room) error
	Get(id string) (*Room, bool)
	Update(room *Room) error
	Delete(id string)
	Range(fn func(room *Room) bool)

	// RoomsOf lists the rooms a participant is in, in creation order.
	RoomsOf(participantID string) []string
	Len() int
}

// ChatStore holds the message log of each collaboration room.
type ChatStore interface {
	// Ensure creates an empty log for roomID if none exists.
	Ensure(roomID string)

	// Append adds msg to the end of roomID's log, creating it if needed, and
	// returns the new length.
	Append(roomID string, msg protocol.ChatMessage) int

	// Messages returns a copy of roomID's log in post order.
	Messages(roomID string) []protocol.ChatMessage

	Len() int
	MessageCount() int
}

// MemoryRoomStore is a RoomStore backed by maps. It keeps a reverse index from
// participant to rooms so disconnect cleanup only visits rooms the
// connection joined.
type MemoryRoomStore struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	order  []string
	byPeer map[string]set
}

func NewMemoryRoomStore() *MemoryRoomStore {
	return &MemoryRoomStore{
		rooms:  make(map[string]*Room),
		byPeer: make(map[string]set),
	}
}

func (s *MemoryRoomStore) Create(room *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return ErrRoomExists
	}
	s.rooms[room.ID] = room.clone()
	s.order = append(s.order, room.ID)
	s.index(room.ID, nil, room.Participants)
	return nil
}

func (s *MemoryRoomStore) Get(id string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, false
	}
	return room.clone(), true
}

func (s *MemoryRoomStore) Update(room *Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.rooms[room.ID]
	if !ok {
		return ErrRoomNotFound
	}
	s.index(room.ID, old.Participants, room.Participants)
	s.rooms[room.ID] = room.clone()
	return nil
}

func (s *MemoryRoomStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return
	}
	s.index(id, room.Participants, nil)
	delete(s.rooms, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

// Range calls fn with a copy of each room in creation order until fn returns false.
func (s *MemoryRoomStore) Range(fn func(room *Room) bool) {
	s.mu.RLock()
	rooms := make([]*Room, 0, len(s.order))
	for _, id := range s.order {
		rooms = append(rooms, s.rooms[id].clone())
	}
	s.mu.RUnlock()

	for _, room := range rooms {
		if !fn(room) {
			return
		}
	}
}

func (s *MemoryRoomStore) RoomsOf(participantID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	joined := s.byPeer[participantID]
	out := make([]string, 0, len(joined))
	for _, id := range s.order {
		if _, ok := joined[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (s *MemoryRoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// index moves roomID's reverse index entries from before to after. Must be
// called with s.mu held.
func (s *MemoryRoomStore) index(roomID string, before, after []string) {
	for _, id := range before {
		if slices.Contains(after, id) {
			continue
		}
		if rooms, ok := s.byPeer[id]; ok {
			delete(rooms, roomID)
			if len(rooms) == 0 {
				delete(s.byPeer, id)
			}
		}
	}
	for _, id := range after {
		rooms, ok := s.byPeer[id]
		if !ok {
			rooms = make(set)
			s.byPeer[id] = rooms
		}
		rooms[roomID] = struct{}{}
	}
}

// MemoryChatStore is a ChatStore backed by a map of slices. Logs grow without
// bound for the life of the process.
type MemoryChatStore struct {
	mu    sync.RWMutex
	logs  map[string][]protocol.ChatMessage
	total int
}

func NewMemoryChatStore() *MemoryChatStore {
	return &MemoryChatStore{logs: make(map[string][]protocol.ChatMessage)}
}

func (s *MemoryChatStore) Ensure(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logs[roomID]; !ok {
		s.logs[roomID] = []protocol.ChatMessage{}
	}
}

func (s *MemoryChatStore) Append(roomID string, msg protocol.ChatMessage) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[roomID] = append(s.logs[roomID], msg)
	s.total++
	return len(s.logs[roomID])
}

func (s *MemoryChatStore) Messages(roomID string) []protocol.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]protocol.ChatMessage, len(s.logs[roomID]))
	copy(out, s.logs[roomID])
	return out
}

func (s *MemoryChatStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs)
}

func (s *MemoryChatStore) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}
