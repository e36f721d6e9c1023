package peer

import "fmt"

// Error records which negotiation step failed for which peer.
type Error struct {
	Op     string
	PeerID string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s with %s: %v", e.Op, e.PeerID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op, peerID string, err error) *Error {
	return &Error{Op: op, PeerID: peerID, Err: err}
}
