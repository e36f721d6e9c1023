package signaling

import (
	"log/slog"
	"time"

	"github.com/BioHazard786/Studyhall/internal/protocol"
)

// RoomController runs the video room lifecycle: create, join, end and host
// failover on disconnect.
type RoomController struct {
	rooms RoomStore
	conns *Registry
	now   func() time.Time
}

func NewRoomController(rooms RoomStore, conns *Registry) *RoomController {
	return &RoomController{rooms: rooms, conns: conns, now: time.Now}
}

// Create opens a room with the requester as host and sole participant.
func (c *RoomController) Create(connID string, req protocol.RoomRequest) ([]Emission, error) {
	if req.RoomID == "" || req.UserID == "" {
		return nil, missingFields("roomId and userId are required")
	}

	boundTo(connID, req.UserID)
	room := &Room{
		ID:           req.RoomID,
		HostID:       connID,
		Participants: []string{connID},
		CreatedAt:    c.now(),
	}
	if err := c.rooms.Create(room); err != nil {
		return nil, err
	}
	c.conns.JoinChannel(connID, VideoChannel(room.ID))

	slog.Info("room created", "room", room.ID, "host", room.HostID)

	return []Emission{
		toConn(connID, protocol.EventRoomCreated, protocol.RoomEvent{RoomID: room.ID}),
	}, nil
}

// Join adds the requester to an active room. Existing members hear about the
// joiner; the joiner gets a snapshot of everyone else.
func (c *RoomController) Join(connID string, req protocol.RoomRequest) ([]Emission, error) {
	if req.RoomID == "" || req.UserID == "" {
		return nil, missingFields("roomId and userId are required")
	}

	room, ok := c.rooms.Get(req.RoomID)
	if !ok {
		return nil, ErrRoomNotFound
	}

	boundTo(connID, req.UserID)
	fresh := !room.Has(connID)
	if fresh {
		room.Participants = append(room.Participants, connID)
		if err := c.rooms.Update(room); err != nil {
			return nil, err
		}
	}

	channel := VideoChannel(room.ID)
	c.conns.JoinChannel(connID, channel)

	out := []Emission{
		toConn(connID, protocol.EventRoomJoined, protocol.RoomEvent{RoomID: room.ID}),
	}
	if fresh {
		out = append(out, toChannel(channel, protocol.EventUserJoined, protocol.Participant{
			ID:     connID,
			Name:   DisplayName(connID),
			IsHost: false,
		}, connID))
	}

	others := make([]protocol.Participant, 0, len(room.Participants))
	for _, id := range room.Participants {
		if id == connID {
			continue
		}
		others = append(others, protocol.Participant{
			ID:     id,
			Name:   DisplayName(id),
			IsHost: id == room.HostID,
		})
	}
	out = append(out, toConn(connID, protocol.EventExistingParticipants, others))

	slog.Info("user joined room", "room", room.ID, "user", connID, "participants", len(room.Participants))
	return out, nil
}

// End destroys a room when the requester is its host. Anyone else is ignored.
func (c *RoomController) End(connID string, req protocol.RoomRequest) ([]Emission, error) {
	if req.RoomID == "" || req.UserID == "" {
		return nil, missingFields("roomId and userId are required")
	}

	room, ok := c.rooms.Get(req.RoomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.HostID != connID {
		return nil, ErrNotHost
	}

	// Members are resolved now because the channel is closed below.
	channel := VideoChannel(room.ID)
	targets := append(room.Participants, c.conns.Members(channel)...)

	c.rooms.Delete(room.ID)
	c.conns.CloseChannel(channel)

	slog.Info("room ended by host", "room", room.ID, "host", connID)

	return []Emission{{
		Target:  Target{Conns: targets},
		Event:   protocol.EventRoomEnded,
		Payload: protocol.RoomEvent{RoomID: room.ID},
	}}, nil
}

// Leave removes a disconnected participant from every room it was in. A host
// leaving a non-empty room hands the room to the earliest remaining joiner.
func (c *RoomController) Leave(connID string) []Emission {
	var out []Emission

	for _, roomID := range c.rooms.RoomsOf(connID) {
		room, ok := c.rooms.Get(roomID)
		if !ok || !room.Remove(connID) {
			continue
		}

		channel := VideoChannel(roomID)
		c.conns.LeaveChannel(connID, channel)

		if len(room.Participants) == 0 {
			c.rooms.Delete(roomID)
			c.conns.CloseChannel(channel)
			slog.Info("room closed, last participant left", "room", roomID)
			continue
		}

		out = append(out, toChannel(channel, protocol.EventUserLeft, protocol.UserEvent{UserID: connID}, connID))

		if room.HostID == connID {
			room.HostID = room.Participants[0]
			payload := protocol.NewHost{NewHostID: room.HostID}
			out = append(out,
				toConn(room.HostID, protocol.EventNewHost, payload),
				toChannel(channel, protocol.EventNewHost, payload, room.HostID, connID),
			)
			slog.Info("host left, room handed over", "room", roomID, "host", room.HostID)
		}

		if err := c.rooms.Update(room); err != nil {
			slog.Error("failed to update room after leave", "room", roomID, "err", err)
		}
	}
	return out
}

// boundTo logs a request whose userId is not the connection it arrived on.
// Room membership always follows the connection id.
func boundTo(connID, userID string) {
	if userID != connID {
		slog.Debug("userId differs from connection, using connection id", "conn", connID, "user", userID)
	}
}
