package signaling

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrRoomNotFound  = errors.New("room does not exist")
	ErrRoomExists    = errors.New("room already exists")
	ErrNotHost       = errors.New("requester is not the room host")
)

// EventError ties a handler failure to the event and connection that caused it.
type EventError struct {
	Event   string
	ConnID  string
	Err     error
	Details string
}

func (e *EventError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s from %s: %v (%s)", e.Event, e.ConnID, e.Err, e.Details)
	}
	return fmt.Sprintf("%s from %s: %v", e.Event, e.ConnID, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}

// UserMessage is the text sent back in an error event.
func (e *EventError) UserMessage() string {
	switch {
	case errors.Is(e.Err, ErrMissingFields):
		return "Missing required fields"
	case errors.Is(e.Err, ErrRoomExists):
		return "Room already exists"
	case errors.Is(e.Err, ErrRoomNotFound):
		return "Room does not exist"
	}
	return "Error handling " + e.Event
}

func missingFields(details string) error {
	return fmt.Errorf("%w: %s", ErrMissingFields, details)
}
