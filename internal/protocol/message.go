package protocol

// Event names, client to server.
const (
	EventCreateRoom        = "create-room"
	EventJoinRoom          = "join-room"
	EventEndRoom           = "end-room"
	EventOffer             = "offer"
	EventAnswer            = "answer"
	EventICECandidate      = "ice-candidate"
	EventJoinCollaboration = "join-collaboration"
	EventMessage           = "message"
	EventTyping            = "typing"
	EventStoppedTyping     = "stopped-typing"
)

// Event names, server to client. offer, answer, ice-candidate and message are
// shared with the inbound set.
const (
	EventConnected            = "connected"
	EventRoomCreated          = "room-created"
	EventRoomJoined           = "room-joined"
	EventExistingParticipants = "existing-participants"
	EventUserJoined           = "user-joined"
	EventUserLeft             = "user-left"
	EventNewHost              = "new-host"
	EventRoomEnded            = "room-ended"
	EventError                = "error"
	EventExistingMessages     = "existing-messages"
	EventUserTyping           = "user-typing"
	EventUserStoppedTyping    = "user-stopped-typing"
)

// Message kinds.
const (
	KindText = "text"
	KindCode = "code"
)

// Outbound is a single event queued for one connection.
type Outbound struct {
	Event   string
	Payload any
}

// RoomRequest is the payload of create-room, join-room, end-room,
// join-collaboration, typing and stopped-typing.
type RoomRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// SignalRequest carries a WebRTC negotiation payload to one peer. Signal holds
// the SDP for offer/answer and Candidate the ICE candidate; neither is
// inspected by the server.
type SignalRequest struct {
	RoomID       string `json:"roomId"`
	UserID       string `json:"userId"`
	TargetUserID string `json:"targetUserId"`
	Signal       any    `json:"signal,omitempty"`
	Candidate    any    `json:"candidate,omitempty"`
}

// ChatMessage is one entry of a collaboration room's log. Fields the server
// does not interpret, such as the web client's type, are kept in Extra and
// sent back out unchanged.
type ChatMessage struct {
	ID        string         `json:"id,omitempty"`
	Sender    string         `json:"sender"`
	Content   string         `json:"content"`
	Timestamp string         `json:"timestamp,omitempty"`
	Kind      string         `json:"kind,omitempty"`
	Extra     map[string]any `json:"-"`
}

// MessageRequest is the payload of the inbound message event.
type MessageRequest struct {
	RoomID  string       `json:"roomId"`
	Message *ChatMessage `json:"message"`
}

// Connected tells a client the id it was registered under.
type Connected struct {
	ID string `json:"id"`
}

// RoomEvent is the payload of room-created, room-joined and room-ended.
type RoomEvent struct {
	RoomID string `json:"roomId"`
}

// Participant describes a video room member.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

// UserEvent is the payload of user-left and of collaboration user-joined.
type UserEvent struct {
	UserID string `json:"userId"`
}

// NewHost announces a host change.
type NewHost struct {
	NewHostID string `json:"newHostId"`
}

// ErrorPayload is the only user visible error shape.
type ErrorPayload struct {
	Message string `json:"message"`
}

// SignalRelay is what the target of an offer, answer or ice-candidate receives.
type SignalRelay struct {
	UserID    string `json:"userId"`
	Signal    any    `json:"signal,omitempty"`
	Candidate any    `json:"candidate,omitempty"`
}

// ExistingMessages replays a collaboration room's log to a joiner.
type ExistingMessages struct {
	RoomID   string        `json:"roomId"`
	Messages []ChatMessage `json:"messages"`
}

// Typing is the payload of user-typing and user-stopped-typing.
type Typing struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}
