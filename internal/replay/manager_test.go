package replay

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/mockgps/internal/storage/cursor"
	"github.com/flowmesh/mockgps/internal/test"
	"github.com/flowmesh/mockgps/internal/track"
)

func cursorBackends(t *testing.T) map[string]func(t *testing.T) cursor.Store {
	t.Helper()
	return map[string]func(t *testing.T) cursor.Store{
		cursor.BackendMemory: func(t *testing.T) cursor.Store {
			return cursor.NewMemoryStore()
		},
		cursor.BackendFile: func(t *testing.T) cursor.Store {
			store, err := cursor.NewFileStore(t.TempDir())
			require.NoError(t, err)
			return store
		},
		cursor.BackendPebble: func(t *testing.T) cursor.Store {
			store, err := cursor.OpenPebble(t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
		cursor.BackendSQLite: func(t *testing.T) cursor.Store {
			store, err := cursor.OpenSQLite(filepath.Join(t.TempDir(), cursor.DefaultSQLiteFile))
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
	}
}

func intPtr(v int) *int { return &v }

// waitIdle blocks until the manager no longer tracks a session for trackName
func waitIdle(t *testing.T, m *Manager, trackName string) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := m.Session(trackName)
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
}

func TestManager_ResumesFromPersistedCursor(t *testing.T) {
	for name, newStore := range cursorBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			require.NoError(t, store.Save(ctx, "demo", 2))

			m := NewManager(store, Options{Delay: time.Millisecond})
			sink := &recordingSink{}
			progress := &progressRecorder{}

			sess, err := m.Start(ctx, StartRequest{
				Track:      "demo",
				Source:     track.NewSliceSource(test.Track(4)),
				Sink:       sink,
				OnProgress: progress.record,
			})
			require.NoError(t, err)
			assert.Equal(t, 2, sess.StartIndex())

			assert.Equal(t, StateExhausted, waitState(t, sess, time.Second))
			waitIdle(t, m, "demo")

			assert.Equal(t, []int{2, 3}, sink.indices())
			assert.Equal(t, []int{2, 3}, progress.get())

			// exhausted tracks resume past their last line
			saved, err := store.Load(ctx, "demo")
			require.NoError(t, err)
			assert.Equal(t, 4, saved)

			index, err := m.Cursor(ctx, "demo")
			require.NoError(t, err)
			assert.Equal(t, 4, index)
		})
	}
}

func TestManager_RestartAfterExhaustion(t *testing.T) {
	ctx := context.Background()
	m := NewManager(cursor.NewMemoryStore(), Options{Delay: time.Millisecond})
	lines := test.Track(3)

	first, err := m.Start(ctx, StartRequest{Track: "demo", Source: track.NewSliceSource(lines), Sink: &recordingSink{}})
	require.NoError(t, err)
	waitState(t, first, time.Second)
	waitIdle(t, m, "demo")

	sink := &recordingSink{}
	second, err := m.Start(ctx, StartRequest{Track: "demo", Source: track.NewSliceSource(lines), Sink: sink})
	require.NoError(t, err)
	assert.Equal(t, 3, second.StartIndex())
	assert.Equal(t, StateExhausted, waitState(t, second, time.Second))
	assert.Empty(t, sink.indices())
}

func TestManager_StopPersistsCursor(t *testing.T) {
	for name, newStore := range cursorBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			m := NewManager(store, Options{Delay: 5 * time.Millisecond})
			lines := test.Track(500)

			sink := &recordingSink{notify: make(chan int, len(lines))}
			_, err := m.Start(ctx, StartRequest{Track: "demo", Source: track.NewSliceSource(lines), Sink: sink})
			require.NoError(t, err)

			for i := 0; i < 5; i++ {
				<-sink.notify
			}
			require.NoError(t, m.Stop(ctx, "demo"))

			emitted := sink.indices()
			last := emitted[len(emitted)-1]

			saved, err := store.Load(ctx, "demo")
			require.NoError(t, err)
			assert.Equal(t, last, saved)

			// the record in flight at stop time is replayed again
			resumed := &recordingSink{notify: make(chan int, len(lines))}
			sess, err := m.Start(ctx, StartRequest{Track: "demo", Source: track.NewSliceSource(lines), Sink: resumed})
			require.NoError(t, err)
			assert.Equal(t, saved, sess.StartIndex())

			assert.Equal(t, saved, <-resumed.notify)
			assert.Equal(t, saved+1, <-resumed.notify)
			require.NoError(t, m.Stop(ctx, "demo"))
		})
	}
}

func TestManager_SessionActive(t *testing.T) {
	ctx := context.Background()
	m := NewManager(cursor.NewMemoryStore(), Options{Delay: time.Hour})

	sess, err := m.Start(ctx, StartRequest{Track: "demo", Source: track.NewSliceSource(test.Track(3)), Sink: &recordingSink{}})
	require.NoError(t, err)

	_, err = m.Start(ctx, StartRequest{Track: "demo", Source: track.NewSliceSource(test.Track(3)), Sink: &recordingSink{}})
	var activeErr SessionActiveError
	require.True(t, errors.As(err, &activeErr))
	assert.Equal(t, sess.ID(), activeErr.SessionID)

	// other tracks are independent
	other, err := m.Start(ctx, StartRequest{Track: "other", Source: track.NewSliceSource(test.Track(3)), Sink: &recordingSink{}})
	require.NoError(t, err)

	got, ok := m.Session("demo")
	require.True(t, ok)
	assert.Equal(t, sess, got)

	require.NoError(t, m.Shutdown(ctx))
	assert.Equal(t, StateCancelled, sess.State())
	assert.Equal(t, StateCancelled, other.State())

	_, err = m.Start(ctx, StartRequest{Track: "demo", Source: track.NewSliceSource(test.Track(3)), Sink: &recordingSink{}})
	require.NoError(t, err)
	require.NoError(t, m.Shutdown(ctx))
}

func TestManager_StopUnknownTrack(t *testing.T) {
	m := NewManager(cursor.NewMemoryStore(), Options{})

	err := m.Stop(context.Background(), "missing")
	var notFound SessionNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "missing", notFound.Track)
}

func TestManager_Reset(t *testing.T) {
	ctx := context.Background()
	store := cursor.NewMemoryStore()
	require.NoError(t, store.Save(ctx, "demo", 3))
	m := NewManager(store, Options{Delay: time.Hour})

	_, err := m.Start(ctx, StartRequest{Track: "demo", Source: track.NewSliceSource(test.Track(10)), Sink: &recordingSink{}})
	require.NoError(t, err)

	var activeErr SessionActiveError
	require.True(t, errors.As(m.Reset(ctx, "demo"), &activeErr))

	require.NoError(t, m.Stop(ctx, "demo"))
	require.NoError(t, m.Reset(ctx, "demo"))

	index, err := m.Cursor(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 0, index)

	saved, err := store.Load(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 0, saved)
}

func TestManager_ExplicitStartIndex(t *testing.T) {
	ctx := context.Background()
	store := cursor.NewMemoryStore()
	require.NoError(t, store.Save(ctx, "demo", 3))
	m := NewManager(store, Options{Delay: time.Millisecond})

	sink := &recordingSink{}
	sess, err := m.Start(ctx, StartRequest{
		Track:      "demo",
		Source:     track.NewSliceSource(test.Track(4)),
		Sink:       sink,
		StartIndex: intPtr(1),
	})
	require.NoError(t, err)
	waitState(t, sess, time.Second)
	assert.Equal(t, []int{1, 2, 3}, sink.indices())

	_, err = m.Start(ctx, StartRequest{
		Track:      "demo",
		Source:     track.NewSliceSource(test.Track(4)),
		Sink:       sink,
		StartIndex: intPtr(-2),
	})
	waitIdle(t, m, "demo")
	var indexErr InvalidIndexError
	assert.True(t, errors.As(err, &indexErr))
}

func TestManager_StartValidation(t *testing.T) {
	ctx := context.Background()
	m := NewManager(cursor.NewMemoryStore(), Options{})
	src := track.NewSliceSource(nil)

	_, err := m.Start(ctx, StartRequest{Source: src, Sink: &recordingSink{}})
	assert.Error(t, err)
	_, err = m.Start(ctx, StartRequest{Track: "demo", Sink: &recordingSink{}})
	assert.Error(t, err)
	_, err = m.Start(ctx, StartRequest{Track: "demo", Source: src})
	assert.Error(t, err)
}

func TestManager_SessionOutlivesRequestContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager(cursor.NewMemoryStore(), Options{Delay: time.Millisecond})

	sink := &recordingSink{notify: make(chan int, 10000)}
	sess, err := m.Start(ctx, StartRequest{Track: "demo", Source: track.NewSliceSource(test.Track(10000)), Sink: sink})
	require.NoError(t, err)
	cancel()

	for i := 0; i < 10; i++ {
		<-sink.notify
	}
	assert.Equal(t, StateRunning, sess.State())

	require.NoError(t, m.Stop(context.Background(), "demo"))
	assert.Equal(t, StateCancelled, sess.State())
}

func TestManager_StopHonorsContext(t *testing.T) {
	m := NewManager(cursor.NewMemoryStore(), Options{Delay: -1})

	// a sink that ignores cancellation keeps the session alive past Stop's deadline
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	sink := SinkFunc(func(ctx context.Context, index int, record track.Record) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return nil
	})

	_, err := m.Start(context.Background(), StartRequest{Track: "demo", Source: track.NewSliceSource(test.Track(3)), Sink: sink})
	require.NoError(t, err)
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Stop(ctx, "demo"), context.DeadlineExceeded)

	close(release)
	waitIdle(t, m, "demo")
}
