package replay

import (
	"context"
	"time"

	"github.com/flowmesh/mockgps/internal/metrics"
	"github.com/flowmesh/mockgps/internal/track"
)

// DefaultDelay is the pause after each emitted record
const DefaultDelay = 200 * time.Millisecond

// State is the lifecycle state of a replay session
type State int32

const (
	// StateIdle indicates the session has not started iterating
	StateIdle State = iota
	// StateRunning indicates the session is replaying
	StateRunning
	// StateExhausted indicates the track ran out of lines
	StateExhausted
	// StateCancelled indicates the session was cancelled
	StateCancelled
	// StateFailed indicates the source could not be read
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateExhausted:
		return "exhausted"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further callbacks can happen in this state
func (s State) Terminal() bool {
	return s == StateExhausted || s == StateCancelled || s == StateFailed
}

// Sink receives every successfully parsed record, stamped with emission time
type Sink interface {
	Emit(ctx context.Context, index int, record track.Record) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, index int, record track.Record) error

// Emit calls f
func (f SinkFunc) Emit(ctx context.Context, index int, record track.Record) error {
	return f(ctx, index, record)
}

// ProgressFunc is invoked with the index of every visited line at or after
// the start index, before that line is parsed
type ProgressFunc func(index int)

// Options configures a Scheduler
type Options struct {
	// Track labels logs and metrics
	Track string

	// Delay is the pause after each emitted record. Zero means DefaultDelay;
	// a negative value disables pacing.
	Delay time.Duration

	// Now stamps emitted records. Defaults to time.Now.
	Now func() time.Time

	// Metrics is optional
	Metrics *metrics.ReplayMetrics
}

func (o Options) withDefaults() Options {
	if o.Delay == 0 {
		o.Delay = DefaultDelay
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Stats summarizes a session. LastIndex is -1 until a progress callback fires.
// Lines is the number of lines read from the source, including fast-forwarded ones.
type Stats struct {
	Emitted      int64
	Skipped      int64
	SinkFailures int64
	LastIndex    int
	Lines        int
}

// StartRequest describes a managed replay
type StartRequest struct {
	// Track names the cursor the session reads and advances
	Track string
	// Source supplies the raw lines
	Source track.Source
	// Sink receives emitted records
	Sink Sink
	// StartIndex overrides the persisted cursor when set
	StartIndex *int
	// OnProgress is called after the cursor has been advanced and persisted
	OnProgress ProgressFunc
}
