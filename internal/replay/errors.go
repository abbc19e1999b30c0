package replay

import (
	"fmt"
)

// SessionActiveError indicates a track already has a running session
type SessionActiveError struct {
	Track     string
	SessionID string
}

func (e SessionActiveError) Error() string {
	return fmt.Sprintf("replay session %s is already active for track %s", e.SessionID, e.Track)
}

// SessionNotFoundError indicates no session is running for a track
type SessionNotFoundError struct {
	Track string
}

func (e SessionNotFoundError) Error() string {
	return fmt.Sprintf("no active replay session for track %s", e.Track)
}

// InvalidIndexError indicates an unusable start index
type InvalidIndexError struct {
	Index  int
	Reason string
}

func (e InvalidIndexError) Error() string {
	return fmt.Sprintf("invalid start index %d: %s", e.Index, e.Reason)
}

// SinkPanicError wraps a panic raised by a sink
type SinkPanicError struct {
	Index int
	Value any
}

func (e SinkPanicError) Error() string {
	return fmt.Sprintf("sink panicked at index %d: %v", e.Index, e.Value)
}
