package peer

import (
	"encoding/json"
	"errors"
	"fmt"

	pion "github.com/pion/webrtc/v4"
)

var (
	ErrUnexpectedSignal = errors.New("unexpected signal type")
	ErrEmptyCandidate   = errors.New("empty ice candidate")
	ErrUnknownPeer      = errors.New("unknown peer")
)

// sessionSignal is the wire shape of an offer or answer, the same one
// browsers produce with RTCSessionDescription.toJSON().
func sessionSignal(sd *pion.SessionDescription) map[string]any {
	return map[string]any{"type": sd.Type.String(), "sdp": sd.SDP}
}

// parseSession reads an offer or answer relayed by the server. The value has
// already been through a codec, so it is round-tripped through JSON to get a
// typed description regardless of the concrete map types.
func parseSession(v any, want pion.SDPType) (pion.SessionDescription, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return pion.SessionDescription{}, err
	}

	var s struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return pion.SessionDescription{}, err
	}

	typ := pion.NewSDPType(s.Type)
	if typ != want || s.SDP == "" {
		return pion.SessionDescription{}, fmt.Errorf("%w: got %q, want %s", ErrUnexpectedSignal, s.Type, want)
	}
	return pion.SessionDescription{Type: typ, SDP: s.SDP}, nil
}

// parseCandidate reads a relayed ICE candidate. Both the bare candidate
// object and one wrapped as {"candidate": {...}} are accepted.
func parseCandidate(v any) (pion.ICECandidateInit, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return pion.ICECandidateInit{}, err
	}

	var ice pion.ICECandidateInit
	if err := json.Unmarshal(raw, &ice); err == nil && ice.Candidate != "" {
		return ice, nil
	}

	var wrapped struct {
		Candidate pion.ICECandidateInit `json:"candidate"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Candidate.Candidate != "" {
		return wrapped.Candidate, nil
	}
	return pion.ICECandidateInit{}, ErrEmptyCandidate
}
