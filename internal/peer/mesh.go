package peer

import (
	"log/slog"
	"sort"
	"sync"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Studyhall/internal/config"
	"github.com/BioHazard786/Studyhall/internal/protocol"
)

const dataChannelLabel = "studyhall"

// Signaler sends events to the signaling server.
type Signaler interface {
	Send(event string, payload any) error
}

// StateChange reports a peer connection state transition.
type StateChange struct {
	PeerID string
	State  pion.PeerConnectionState
}

type link struct {
	pc        *pion.PeerConnection
	pending   []pion.ICECandidateInit
	remoteSet bool
}

// Mesh keeps one peer connection per remote participant of a video room.
// Offers, answers and candidates travel through the signaling server.
type Mesh struct {
	mu     sync.Mutex
	conf   pion.Configuration
	roomID string
	selfID string
	signal Signaler
	links  map[string]*link
	states chan StateChange
}

// NewMesh builds a mesh for roomID. ICE servers come from cfg.
func NewMesh(cfg *config.Client, roomID, selfID string, signal Signaler) *Mesh {
	var servers []pion.ICEServer
	if stun := cfg.STUNServers(); stun != nil {
		servers = append(servers, pion.ICEServer{URLs: stun})
	}

	policy := pion.ICETransportPolicyAll
	if turn := cfg.TURNServers(); turn != nil {
		servers = append(servers, pion.ICEServer{
			URLs:       turn,
			Username:   cfg.TURNUser,
			Credential: cfg.TURNPass,
		})
		if cfg.ForceRelay || restrictedNetwork() {
			policy = pion.ICETransportPolicyRelay
		}
	}

	return &Mesh{
		conf:   pion.Configuration{ICEServers: servers, ICETransportPolicy: policy},
		roomID: roomID,
		selfID: selfID,
		signal: signal,
		links:  make(map[string]*link),
		states: make(chan StateChange, 16),
	}
}

// States delivers connection state changes. Changes are dropped when nobody
// reads them.
func (m *Mesh) States() <-chan StateChange {
	return m.states
}

// Peers lists the remote participants with a live connection attempt.
func (m *Mesh) Peers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.links))
	for id, l := range m.links {
		if l.pc != nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Call opens a connection to peerID and sends it an offer.
func (m *Mesh) Call(peerID string) error {
	l, err := m.open(peerID)
	if err != nil {
		return err
	}

	if _, err := l.pc.CreateDataChannel(dataChannelLabel, nil); err != nil {
		return NewError("create data channel", peerID, err)
	}

	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return NewError("create offer", peerID, err)
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		return NewError("set local description", peerID, err)
	}

	return m.send(protocol.EventOffer, peerID, sessionSignal(l.pc.LocalDescription()), nil)
}

// HandleOffer answers an offer from peerID, replacing any earlier connection.
func (m *Mesh) HandleOffer(peerID string, signal any) error {
	offer, err := parseSession(signal, pion.SDPTypeOffer)
	if err != nil {
		return NewError("handle offer", peerID, err)
	}

	l, err := m.open(peerID)
	if err != nil {
		return err
	}
	if err := m.setRemote(peerID, l, offer); err != nil {
		return err
	}

	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return NewError("create answer", peerID, err)
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		return NewError("set local description", peerID, err)
	}

	return m.send(protocol.EventAnswer, peerID, sessionSignal(l.pc.LocalDescription()), nil)
}

// HandleAnswer completes a Call.
func (m *Mesh) HandleAnswer(peerID string, signal any) error {
	answer, err := parseSession(signal, pion.SDPTypeAnswer)
	if err != nil {
		return NewError("handle answer", peerID, err)
	}

	m.mu.Lock()
	l, ok := m.links[peerID]
	m.mu.Unlock()
	if !ok || l.pc == nil {
		return NewError("handle answer", peerID, ErrUnknownPeer)
	}
	return m.setRemote(peerID, l, answer)
}

// HandleCandidate adds a remote candidate. Candidates that arrive before the
// remote description are held until it is set.
func (m *Mesh) HandleCandidate(peerID string, candidate any) error {
	ice, err := parseCandidate(candidate)
	if err != nil {
		return NewError("parse ice candidate", peerID, err)
	}

	m.mu.Lock()
	l, ok := m.links[peerID]
	if !ok {
		l = &link{}
		m.links[peerID] = l
	}
	if l.pc == nil || !l.remoteSet {
		l.pending = append(l.pending, ice)
		m.mu.Unlock()
		return nil
	}
	pc := l.pc
	m.mu.Unlock()

	if err := pc.AddICECandidate(ice); err != nil {
		return NewError("add ice candidate", peerID, err)
	}
	return nil
}

// Drop closes the connection to peerID.
func (m *Mesh) Drop(peerID string) {
	m.mu.Lock()
	l, ok := m.links[peerID]
	delete(m.links, peerID)
	m.mu.Unlock()

	if ok && l.pc != nil {
		if err := l.pc.Close(); err != nil {
			slog.Debug("closing peer connection", "peer", peerID, "err", err)
		}
	}
}

// Close drops every peer.
func (m *Mesh) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.links))
	for id := range m.links {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Drop(id)
	}
}

// open creates a fresh peer connection for peerID, keeping candidates that
// were buffered before it existed.
func (m *Mesh) open(peerID string) (*link, error) {
	pc, err := pion.NewPeerConnection(m.conf)
	if err != nil {
		return nil, NewError("create peer connection", peerID, err)
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		if err := m.send(protocol.EventICECandidate, peerID, nil, init); err != nil {
			slog.Debug("failed to send ice candidate", "peer", peerID, "err", err)
		}
	})
	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		slog.Debug("peer connection state", "peer", peerID, "state", state.String())
		select {
		case m.states <- StateChange{PeerID: peerID, State: state}:
		default:
		}
	})
	pc.OnDataChannel(func(dc *pion.DataChannel) {
		slog.Debug("data channel opened by peer", "peer", peerID, "label", dc.Label())
	})

	m.mu.Lock()
	old := m.links[peerID]
	l := &link{pc: pc}
	if old != nil {
		l.pending = old.pending
	}
	m.links[peerID] = l
	m.mu.Unlock()

	if old != nil && old.pc != nil {
		old.pc.Close()
	}
	return l, nil
}

func (m *Mesh) setRemote(peerID string, l *link, desc pion.SessionDescription) error {
	if err := l.pc.SetRemoteDescription(desc); err != nil {
		return NewError("set remote description", peerID, err)
	}

	m.mu.Lock()
	l.remoteSet = true
	pending := l.pending
	l.pending = nil
	m.mu.Unlock()

	for _, ice := range pending {
		if err := l.pc.AddICECandidate(ice); err != nil {
			slog.Debug("dropping buffered candidate", "peer", peerID, "err", err)
		}
	}
	return nil
}

func (m *Mesh) send(event, peerID string, signal any, candidate any) error {
	req := protocol.SignalRequest{
		RoomID:       m.roomID,
		UserID:       m.selfID,
		TargetUserID: peerID,
		Signal:       signal,
	}
	if candidate != nil {
		req.Candidate = candidate
	}
	if err := m.signal.Send(event, req); err != nil {
		return NewError("send "+event, peerID, err)
	}
	return nil
}
