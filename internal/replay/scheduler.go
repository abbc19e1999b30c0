package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowmesh/mockgps/internal/logger"
	"github.com/flowmesh/mockgps/internal/track"
	"github.com/flowmesh/mockgps/internal/tracing"
)

// Scheduler replays tracks at a fixed cadence
type Scheduler struct {
	opts Options
	log  zerolog.Logger
}

// NewScheduler creates a scheduler
func NewScheduler(opts Options) *Scheduler {
	opts = opts.withDefaults()
	log := logger.WithComponent("replay.scheduler")
	if opts.Track != "" {
		log = log.With().Str("track", opts.Track).Logger()
	}
	return &Scheduler{opts: opts, log: log}
}

// Session is a running replay. All methods are safe for concurrent use.
type Session struct {
	id         string
	track      string
	startIndex int

	cancel    context.CancelFunc
	cancelled atomic.Bool
	state     atomic.Int32
	done      chan struct{}
	err       error // written before done is closed

	emitted   atomic.Int64
	skipped   atomic.Int64
	failures  atomic.Int64
	lastIndex atomic.Int64
	lines     atomic.Int64
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Track returns the track label
func (s *Session) Track() string { return s.track }

// StartIndex returns the resume point the session was started with
func (s *Session) StartIndex() int { return s.startIndex }

// State returns the current lifecycle state
func (s *Session) State() State { return State(s.state.Load()) }

// Cancel requests termination. A pending pacing delay is abandoned; an
// emission already in progress completes. Safe to call more than once.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
	s.cancel()
}

// Done is closed once the session has ended and no further callbacks will fire
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session ends and returns its terminal state
func (s *Session) Wait() State {
	<-s.done
	return s.State()
}

// Err returns the error that failed the session, if any. Only meaningful after Done.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Stats returns a snapshot of the session counters
func (s *Session) Stats() Stats {
	return Stats{
		Emitted:      s.emitted.Load(),
		Skipped:      s.skipped.Load(),
		SinkFailures: s.failures.Load(),
		LastIndex:    int(s.lastIndex.Load()),
		Lines:        int(s.lines.Load()),
	}
}

// Start begins replaying src on a new goroutine and returns immediately.
// Lines before startIndex are consumed without callbacks. onProgress may be nil.
// ctx bounds the session: cancelling it has the same effect as Session.Cancel.
func (s *Scheduler) Start(ctx context.Context, src track.Source, startIndex int, sink Sink, onProgress ProgressFunc) (*Session, error) {
	if startIndex < 0 {
		return nil, InvalidIndexError{Index: startIndex, Reason: "start index cannot be negative"}
	}
	if src == nil {
		return nil, fmt.Errorf("track source is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if onProgress == nil {
		onProgress = func(int) {}
	}

	runCtx, cancel := context.WithCancel(ctx)
	sess := &Session{
		id:         uuid.NewString(),
		track:      s.opts.Track,
		startIndex: startIndex,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	sess.lastIndex.Store(-1)
	sess.state.Store(int32(StateRunning))

	s.opts.Metrics.SessionStarted(s.opts.Track)
	s.log.Info().
		Str("session", sess.id).
		Int("start_index", startIndex).
		Dur("delay", s.opts.Delay).
		Msg("Replay started")

	go s.run(runCtx, sess, src, sink, onProgress)

	return sess, nil
}

// run iterates the track once. It is the only writer of session state.
func (s *Scheduler) run(ctx context.Context, sess *Session, src track.Source, sink Sink, onProgress ProgressFunc) {
	var (
		state  State
		runErr error
	)

	defer func() {
		if r := recover(); r != nil {
			state = StateFailed
			runErr = fmt.Errorf("replay panicked: %v", r)
		}
		sess.cancel()
		sess.err = runErr
		sess.state.Store(int32(state))
		s.opts.Metrics.SessionFinished(s.opts.Track, state.String())
		close(sess.done)

		stats := sess.Stats()
		ev := s.log.Info()
		if runErr != nil {
			ev = s.log.Error().Err(runErr)
		}
		ev.Str("session", sess.id).
			Str("state", state.String()).
			Int64("emitted", stats.Emitted).
			Int64("skipped", stats.Skipped).
			Int64("sink_failures", stats.SinkFailures).
			Int("last_index", stats.LastIndex).
			Msg("Replay finished")
	}()

	state, runErr = s.loop(ctx, sess, src, sink, onProgress)
}

func (s *Scheduler) loop(ctx context.Context, sess *Session, src track.Source, sink Sink, onProgress ProgressFunc) (State, error) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for index := 0; ; index++ {
		if ctx.Err() != nil {
			return StateCancelled, nil
		}

		line, err := src.Next(ctx)
		present := true
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				present = false
			case ctx.Err() != nil:
				return StateCancelled, nil
			default:
				return StateFailed, fmt.Errorf("failed to read line %d: %w", index, err)
			}
		}
		if present {
			sess.lines.Store(int64(index + 1))
		}

		// fast-forward to the resume point
		if present && index < sess.startIndex {
			continue
		}

		if present {
			sess.lastIndex.Store(int64(index))
			onProgress(index)
		}

		outcome := track.Parse(line, present)
		switch outcome.Kind {
		case track.Exhausted:
			return StateExhausted, nil

		case track.Skip:
			sess.skipped.Add(1)
			s.opts.Metrics.RecordSkip(s.opts.Track)
			s.log.Debug().Str("session", sess.id).Int("index", index).Msg("Skipping malformed line")
			continue

		case track.Valid:
			record := outcome.Record.Stamped(s.opts.Now())
			s.emit(ctx, sess, sink, index, record)

			if s.opts.Delay > 0 {
				if timer == nil {
					timer = time.NewTimer(s.opts.Delay)
				} else {
					timer.Reset(s.opts.Delay)
				}
				select {
				case <-ctx.Done():
					return StateCancelled, nil
				case <-timer.C:
				}
			}

			if sess.cancelled.Load() {
				return StateCancelled, nil
			}
		}
	}
}

// emit delivers one record. Sink errors and panics are logged and counted;
// they never stop the replay.
func (s *Scheduler) emit(ctx context.Context, sess *Session, sink Sink, index int, record track.Record) {
	start := time.Now()
	err := safeEmit(ctx, sink, index, record)
	s.opts.Metrics.RecordEmit(s.opts.Track, time.Since(start), err != nil)

	if err != nil {
		sess.failures.Add(1)
		s.log.Warn().
			Err(err).
			Str("session", sess.id).
			Int("index", index).
			Msg("Sink failed to accept location")
		return
	}

	sess.emitted.Add(1)
	tracing.AddEmitEvent(trace.SpanFromContext(ctx), index, record.Latitude, record.Longitude, record.Altitude)
	s.log.Debug().
		Str("session", sess.id).
		Int("index", index).
		Float64("latitude", record.Latitude).
		Float64("longitude", record.Longitude).
		Float64("altitude", record.Altitude).
		Time("fix_time", record.Timestamp).
		Msg("Location emitted")
}

func safeEmit(ctx context.Context, sink Sink, index int, record track.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = SinkPanicError{Index: index, Value: r}
		}
	}()
	return sink.Emit(ctx, index, record)
}
