package replay

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowmesh/mockgps/internal/logger"
	"github.com/flowmesh/mockgps/internal/storage/cursor"
	"github.com/flowmesh/mockgps/internal/tracing"
)

// Manager runs at most one session per track and keeps each track's cursor
// persisted so a later session can resume where the previous one stopped.
type Manager struct {
	store   cursor.Store
	opts    Options
	mu      sync.Mutex
	active  map[string]*managedSession
	cursors map[string]*Cursor
	log     zerolog.Logger
}

type managedSession struct {
	session  *Session
	cursor   *Cursor
	span     trace.Span
	finished chan struct{}
}

// NewManager creates a manager. opts.Track is ignored; each session is
// labelled with its request's track.
func NewManager(store cursor.Store, opts Options) *Manager {
	return &Manager{
		store:   store,
		opts:    opts,
		active:  make(map[string]*managedSession),
		cursors: make(map[string]*Cursor),
		log:     logger.WithComponent("replay.manager"),
	}
}

// Start launches a session for req.Track. Without an explicit StartIndex the
// session resumes from the persisted cursor.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Session, error) {
	if req.Track == "" {
		return nil, fmt.Errorf("track is required")
	}
	if req.Source == nil {
		return nil, fmt.Errorf("track source is required")
	}
	if req.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.active[req.Track]; ok {
		if !existing.session.State().Terminal() {
			return nil, SessionActiveError{Track: req.Track, SessionID: existing.session.ID()}
		}
		// the previous session has ended but its watcher may still be flushing
		m.mu.Unlock()
		<-existing.finished
		m.mu.Lock()
		if _, ok := m.active[req.Track]; ok {
			return nil, SessionActiveError{Track: req.Track, SessionID: m.active[req.Track].session.ID()}
		}
	}

	startIndex, err := m.resolveStart(ctx, req)
	if err != nil {
		return nil, err
	}

	cur := m.cursorLocked(req.Track)
	cur.Reset(startIndex)

	opts := m.opts
	opts.Track = req.Track
	scheduler := NewScheduler(opts)

	// the session must outlive the caller's request context
	sessCtx, span := tracing.StartSessionSpan(context.WithoutCancel(ctx), req.Track, startIndex)

	progress := func(index int) {
		cur.Advance(index)
		m.persist(sessCtx, req.Track, cur.Index())
		m.opts.Metrics.UpdateCursor(req.Track, cur.Index())
		if req.OnProgress != nil {
			req.OnProgress(index)
		}
	}

	session, err := scheduler.Start(sessCtx, req.Source, startIndex, req.Sink, progress)
	if err != nil {
		span.End()
		return nil, err
	}
	tracing.SetSessionID(span, session.ID())

	entry := &managedSession{
		session:  session,
		cursor:   cur,
		span:     span,
		finished: make(chan struct{}),
	}
	m.active[req.Track] = entry
	go m.watch(sessCtx, req.Track, entry)

	m.log.Info().
		Str("track", req.Track).
		Str("session", session.ID()).
		Int("start_index", startIndex).
		Msg("Replay session started")

	return session, nil
}

func (m *Manager) resolveStart(ctx context.Context, req StartRequest) (int, error) {
	if req.StartIndex != nil {
		if *req.StartIndex < 0 {
			return 0, InvalidIndexError{Index: *req.StartIndex, Reason: "start index cannot be negative"}
		}
		return *req.StartIndex, nil
	}
	index, err := m.store.Load(ctx, req.Track)
	if err != nil {
		return 0, fmt.Errorf("failed to load cursor for track %s: %w", req.Track, err)
	}
	return index, nil
}

func (m *Manager) cursorLocked(trackName string) *Cursor {
	cur, ok := m.cursors[trackName]
	if !ok {
		cur = NewCursor(0)
		m.cursors[trackName] = cur
	}
	return cur
}

// persist saves the cursor; failures are logged, replay goes on
func (m *Manager) persist(ctx context.Context, trackName string, index int) {
	if err := m.store.Save(ctx, trackName, index); err != nil {
		m.log.Error().Err(err).Str("track", trackName).Int("index", index).Msg("Failed to persist cursor")
	}
}

// watch finalizes a session once it ends
func (m *Manager) watch(ctx context.Context, trackName string, entry *managedSession) {
	defer close(entry.finished)

	state := entry.session.Wait()
	stats := entry.session.Stats()

	// an exhausted track resumes past its last line
	if state == StateExhausted && entry.cursor.Advance(stats.Lines) {
		m.persist(ctx, trackName, stats.Lines)
		m.opts.Metrics.UpdateCursor(trackName, stats.Lines)
	}

	tracing.EndSessionSpan(entry.span, state.String(), stats.Emitted, stats.Skipped, entry.session.Err())

	m.mu.Lock()
	if m.active[trackName] == entry {
		delete(m.active, trackName)
	}
	m.mu.Unlock()

	m.log.Info().
		Str("track", trackName).
		Str("session", entry.session.ID()).
		Str("state", state.String()).
		Int("cursor", entry.cursor.Index()).
		Msg("Replay session ended")
}

// Stop cancels the track's session and waits until its cursor is persisted
func (m *Manager) Stop(ctx context.Context, trackName string) error {
	m.mu.Lock()
	entry, ok := m.active[trackName]
	m.mu.Unlock()

	if !ok {
		return SessionNotFoundError{Track: trackName}
	}

	entry.session.Cancel()

	select {
	case <-entry.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset forgets the persisted cursor so the next session starts at line 0
func (m *Manager) Reset(ctx context.Context, trackName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.active[trackName]; ok {
		return SessionActiveError{Track: trackName, SessionID: entry.session.ID()}
	}

	if err := m.store.Delete(ctx, trackName); err != nil {
		return fmt.Errorf("failed to reset cursor for track %s: %w", trackName, err)
	}
	if cur, ok := m.cursors[trackName]; ok {
		cur.Reset(0)
	}
	m.opts.Metrics.UpdateCursor(trackName, 0)

	m.log.Info().Str("track", trackName).Msg("Cursor reset")
	return nil
}

// Cursor returns the track's current position: the live cursor while a
// session has run in this process, the persisted one otherwise.
func (m *Manager) Cursor(ctx context.Context, trackName string) (int, error) {
	m.mu.Lock()
	cur, ok := m.cursors[trackName]
	m.mu.Unlock()

	if ok {
		return cur.Index(), nil
	}
	return m.store.Load(ctx, trackName)
}

// Session returns the running session for a track
func (m *Manager) Session(trackName string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.active[trackName]
	if !ok {
		return nil, false
	}
	return entry.session, true
}

// Shutdown stops every running session
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	tracks := make([]string, 0, len(m.active))
	for name := range m.active {
		tracks = append(tracks, name)
	}
	m.mu.Unlock()

	var firstErr error
	for _, name := range tracks {
		err := m.Stop(ctx, name)
		if _, notFound := err.(SessionNotFoundError); notFound {
			continue
		}
		if err != nil {
			m.log.Error().Err(err).Str("track", name).Msg("Failed to stop replay on shutdown")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
