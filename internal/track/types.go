package track

import (
	"time"
)

// Record is one coordinate of a track. Values are never mutated after parsing.
type Record struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	Timestamp time.Time
}

// Stamped returns a copy of the record carrying the given timestamp
func (r Record) Stamped(ts time.Time) Record {
	r.Timestamp = ts
	return r
}

// OutcomeKind tags the result of parsing a raw line
type OutcomeKind int

const (
	// Valid indicates the line produced a record
	Valid OutcomeKind = iota
	// Skip indicates a malformed or empty line; replay continues
	Skip
	// Exhausted indicates there is no more data; replay stops
	Exhausted
)

func (k OutcomeKind) String() string {
	switch k {
	case Valid:
		return "valid"
	case Skip:
		return "skip"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Outcome is the result of parsing one raw line. Record is only set for Valid.
type Outcome struct {
	Kind   OutcomeKind
	Record Record
}
