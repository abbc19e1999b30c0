package cursor

import "fmt"

// InvalidTrackError indicates an unusable track name
type InvalidTrackError struct {
	Track  string
	Reason string
}

func (e InvalidTrackError) Error() string {
	return fmt.Sprintf("invalid track %q: %s", e.Track, e.Reason)
}

// InvalidIndexError indicates a negative cursor index
type InvalidIndexError struct {
	Track string
	Index int
}

func (e InvalidIndexError) Error() string {
	return fmt.Sprintf("invalid cursor index %d for track %s: index cannot be negative", e.Index, e.Track)
}

// ClosedError indicates the store was used after Close
type ClosedError struct {
	Backend string
}

func (e ClosedError) Error() string {
	return fmt.Sprintf("%s cursor store is closed", e.Backend)
}
