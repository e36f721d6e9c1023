package client

import (
	"errors"
	"fmt"
)

var (
	ErrClosed    = errors.New("connection closed")
	ErrHandshake = errors.New("server did not announce a connection id")
	ErrServer    = errors.New("signaling server error")
	ErrTimeout   = errors.New("timeout")
)

// Error records the client operation that failed.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
