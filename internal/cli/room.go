package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Studyhall/internal/peer"
	"github.com/BioHazard786/Studyhall/internal/protocol"
	"github.com/BioHazard786/Studyhall/internal/ui"
)

const leaveTimeout = 3 * time.Second

// roomSession follows one video room: it answers negotiation events through
// the mesh and keeps track of who is present and who hosts.
type roomSession struct {
	sess   *Session
	mesh   *peer.Mesh
	roomID string
	hostID string

	// endOnExit makes a hosting session end the room when interrupted
	// instead of handing it over.
	endOnExit bool

	names       map[string]string
	seen        map[string]struct{}
	connected   map[string]struct{}
	hostChanges int
	started     time.Time
}

func newRoomSession(sess *Session, roomID, hostID string) *roomSession {
	return &roomSession{
		sess:      sess,
		mesh:      peer.NewMesh(sess.Config, roomID, sess.ID(), sess.Client),
		roomID:    roomID,
		hostID:    hostID,
		names:     make(map[string]string),
		seen:      make(map[string]struct{}),
		connected: make(map[string]struct{}),
		started:   time.Now(),
	}
}

func (r *roomSession) isHost() bool {
	return r.hostID == r.sess.ID()
}

func (r *roomSession) name(id string) string {
	if n, ok := r.names[id]; ok {
		return n
	}
	return shortID(id)
}

func (r *roomSession) track(p protocol.Participant) {
	r.names[p.ID] = p.Name
	r.seen[p.ID] = struct{}{}
	if p.IsHost {
		r.hostID = p.ID
	}
}

func (r *roomSession) request() protocol.RoomRequest {
	return protocol.RoomRequest{RoomID: r.roomID, UserID: r.sess.ID()}
}

// run handles room events until the room ends, the connection drops or ctx is
// cancelled. It returns how the session ended.
func (r *roomSession) run(ctx context.Context) (string, error) {
	defer r.mesh.Close()

	for {
		f, ok, err := r.nextFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return r.leave(), nil
			}
			return "", err
		}
		if !ok {
			continue
		}

		ended, err := r.handle(f)
		if err != nil {
			return "", err
		}
		if ended {
			return "host ended the room", nil
		}
	}
}

// nextFrame waits for a frame while still draining peer state changes. ok is
// false when only a state change was handled.
func (r *roomSession) nextFrame(ctx context.Context) (protocol.Frame, bool, error) {
	if len(r.sess.backlog) > 0 {
		return r.sess.Next(ctx)
	}

	select {
	case f, ok := <-r.sess.Client.Incoming():
		if !ok {
			return protocol.Frame{}, false, ErrConnectionLost
		}
		return f, true, nil
	case sc := <-r.mesh.States():
		r.peerState(sc)
		return protocol.Frame{}, false, nil
	case <-ctx.Done():
		return protocol.Frame{}, false, ctx.Err()
	}
}

func (r *roomSession) handle(f protocol.Frame) (bool, error) {
	c := r.sess.Client

	switch f.Event {
	case protocol.EventUserJoined:
		var p protocol.Participant
		if err := c.Decode(f, &p); err != nil {
			return false, err
		}
		r.track(p)
		ui.PrintInfof("%s %s joined the room", ui.IconPeer, p.Name)

	case protocol.EventExistingParticipants:
		var ps []protocol.Participant
		if err := c.Decode(f, &ps); err != nil {
			return false, err
		}
		r.greet(ps)

	case protocol.EventUserLeft:
		var u protocol.UserEvent
		if err := c.Decode(f, &u); err != nil {
			return false, err
		}
		ui.PrintInfof("%s %s left the room", ui.IconPeer, r.name(u.UserID))
		r.mesh.Drop(u.UserID)
		delete(r.connected, u.UserID)

	case protocol.EventNewHost:
		var h protocol.NewHost
		if err := c.Decode(f, &h); err != nil {
			return false, err
		}
		r.hostID = h.NewHostID
		r.hostChanges++
		if r.isHost() {
			ui.PrintSuccess(ui.IconHost + " You are now the host of " + r.roomID)
		} else {
			ui.PrintInfof("%s %s is now the host", ui.IconHost, r.name(h.NewHostID))
		}

	case protocol.EventRoomEnded:
		ui.PrintWarning("The host ended the room")
		return true, nil

	case protocol.EventOffer, protocol.EventAnswer, protocol.EventICECandidate:
		var s protocol.SignalRelay
		if err := c.Decode(f, &s); err != nil {
			return false, err
		}
		r.negotiate(f.Event, s)

	case protocol.EventError:
		var e protocol.ErrorPayload
		if err := c.Decode(f, &e); err == nil {
			ui.PrintWarning(e.Message)
		}

	default:
		slog.Debug("ignoring event", "event", f.Event)
	}
	return false, nil
}

// greet prints who is already in the room and calls each of them.
func (r *roomSession) greet(ps []protocol.Participant) {
	for _, p := range ps {
		r.track(p)
	}
	ui.PrintInfo("Participants:")
	fmt.Fprintln(ui.Output, ui.ParticipantsView(ps, r.sess.ID()))

	for _, p := range ps {
		if err := r.mesh.Call(p.ID); err != nil {
			ui.PrintWarning("Could not call " + p.Name + ": " + err.Error())
		}
	}
}

func (r *roomSession) negotiate(event string, s protocol.SignalRelay) {
	var err error
	switch event {
	case protocol.EventOffer:
		r.seen[s.UserID] = struct{}{}
		err = r.mesh.HandleOffer(s.UserID, s.Signal)
	case protocol.EventAnswer:
		err = r.mesh.HandleAnswer(s.UserID, s.Signal)
	case protocol.EventICECandidate:
		err = r.mesh.HandleCandidate(s.UserID, s.Candidate)
	}
	if err != nil {
		slog.Warn("negotiation failed", "event", event, "peer", s.UserID, "err", err)
	}
}

func (r *roomSession) peerState(sc peer.StateChange) {
	switch sc.State {
	case pion.PeerConnectionStateConnected:
		r.connected[sc.PeerID] = struct{}{}
		ui.PrintSuccess("Connected to " + r.name(sc.PeerID))
	case pion.PeerConnectionStateFailed:
		delete(r.connected, sc.PeerID)
		ui.PrintWarning("Connection to " + r.name(sc.PeerID) + " failed")
	case pion.PeerConnectionStateDisconnected, pion.PeerConnectionStateClosed:
		delete(r.connected, sc.PeerID)
	}
}

// leave runs when the user interrupts the session. A host with endOnExit ends
// the room and waits for the server to confirm; everyone else just
// disconnects and lets the server hand the room over.
func (r *roomSession) leave() string {
	if !r.isHost() || !r.endOnExit {
		return "you left"
	}

	if err := r.sess.Client.Send(protocol.EventEndRoom, r.request()); err != nil {
		return "you left"
	}

	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	if _, err := r.sess.Await(ctx, nil, protocol.EventRoomEnded); err != nil {
		slog.Warn("room end not confirmed", "room", r.roomID, "err", err)
	}
	return "you ended the room"
}

func (r *roomSession) summary(endedBy string) ui.SessionSummary {
	role := "participant"
	if r.isHost() {
		role = "host"
	}
	return ui.SessionSummary{
		RoomID:      r.roomID,
		Role:        role,
		Duration:    time.Since(r.started),
		PeersSeen:   len(r.seen),
		Connected:   len(r.connected),
		HostChanges: r.hostChanges,
		EndedBy:     endedBy,
	}
}
