package signaling

import (
	"github.com/BioHazard786/Studyhall/internal/protocol"
)

// Relay forwards WebRTC negotiation payloads to a single target. It never
// looks inside the payload and never changes room state.
type Relay struct {
	rooms RoomStore
}

func NewRelay(rooms RoomStore) *Relay {
	return &Relay{rooms: rooms}
}

// Forward relays an offer, answer or ice-candidate from connID. The room must
// be active. The target sees the sender's connection id, which is the id it
// knows from the room's participant list.
func (r *Relay) Forward(kind, connID string, req protocol.SignalRequest) ([]Emission, error) {
	if req.RoomID == "" || req.UserID == "" || req.TargetUserID == "" {
		return nil, missingFields("roomId, userId and targetUserId are required")
	}
	if _, ok := r.rooms.Get(req.RoomID); !ok {
		return nil, ErrRoomNotFound
	}

	payload := protocol.SignalRelay{UserID: connID}
	if kind == protocol.EventICECandidate {
		payload.Candidate = req.Candidate
	} else {
		payload.Signal = req.Signal
	}

	return []Emission{toConn(req.TargetUserID, kind, payload)}, nil
}
