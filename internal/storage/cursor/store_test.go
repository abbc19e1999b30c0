package cursor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/flowmesh/mockgps/internal/metrics"
	"github.com/flowmesh/mockgps/internal/test"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func(dir string) Store {
	return map[string]func(dir string) Store{
		BackendMemory: func(string) Store { return NewMemoryStore() },
		BackendFile: func(dir string) Store {
			s, err := NewFileStore(dir)
			require.NoError(t, err)
			return s
		},
		BackendPebble: func(dir string) Store {
			s, err := OpenPebble(filepath.Join(dir, "cursors"))
			require.NoError(t, err)
			return s
		},
		BackendSQLite: func(dir string) Store {
			s, err := OpenSQLite(filepath.Join(dir, DefaultSQLiteFile))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStore_SaveLoadDelete(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(test.TempDir(t))
			defer store.Close()

			idx, err := store.Load(ctx, "demo")
			require.NoError(t, err)
			assert.Equal(t, 0, idx, "unknown track starts at zero")

			require.NoError(t, store.Save(ctx, "demo", 42))
			require.NoError(t, store.Save(ctx, "other", 7))

			idx, err = store.Load(ctx, "demo")
			require.NoError(t, err)
			assert.Equal(t, 42, idx)

			require.NoError(t, store.Delete(ctx, "demo"))
			idx, err = store.Load(ctx, "demo")
			require.NoError(t, err)
			assert.Equal(t, 0, idx)

			idx, err = store.Load(ctx, "other")
			require.NoError(t, err)
			assert.Equal(t, 7, idx)
		})
	}
}

func TestStore_Validation(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(test.TempDir(t))
			defer store.Close()

			err := store.Save(ctx, "", 1)
			var trackErr InvalidTrackError
			assert.True(t, errors.As(err, &trackErr))

			err = store.Save(ctx, "demo", -1)
			var indexErr InvalidIndexError
			assert.True(t, errors.As(err, &indexErr))

			_, err = store.Load(ctx, "")
			assert.Error(t, err)
		})
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	for _, name := range []string{BackendFile, BackendPebble, BackendSQLite} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dir := test.TempDir(t)
			open := backends(t)[name]

			store := open(dir)
			require.NoError(t, store.Save(ctx, "demo", 1234))
			require.NoError(t, store.Close())

			reopened := open(dir)
			defer reopened.Close()

			idx, err := reopened.Load(ctx, "demo")
			require.NoError(t, err)
			assert.Equal(t, 1234, idx)
		})
	}
}

func TestPebbleStore_Closed(t *testing.T) {
	ctx := context.Background()
	store, err := OpenPebble(filepath.Join(test.TempDir(t), "cursors"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.Load(ctx, "demo")
	assert.Equal(t, ClosedError{Backend: BackendPebble}, err)
	assert.Equal(t, ClosedError{Backend: BackendPebble}, store.Save(ctx, "demo", 1))
}

func TestSQLiteStore_Closed(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(test.TempDir(t), DefaultSQLiteFile))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.Load(ctx, "demo")
	assert.Equal(t, ClosedError{Backend: BackendSQLite}, err)
	assert.Equal(t, ClosedError{Backend: BackendSQLite}, store.Delete(ctx, "demo"))
}

func TestSQLiteStore_Upsert(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(test.TempDir(t), "nested", DefaultSQLiteFile))
	require.NoError(t, err)
	defer store.Close()

	for _, idx := range []int{1, 5, 3} {
		require.NoError(t, store.Save(ctx, "demo", idx))
	}
	got, err := store.Load(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	_, err = OpenSQLite("")
	assert.Error(t, err)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := test.TempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultCursorFile), []byte("{not json"), 0o600))

	_, err := NewFileStore(dir)
	assert.Error(t, err)
}

func TestFileStore_NoTempFileLeftBehind(t *testing.T) {
	dir := test.TempDir(t)
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "demo", 3))

	test.AssertFileExists(t, filepath.Join(dir, DefaultCursorFile))
	test.AssertFileNotExists(t, filepath.Join(dir, DefaultCursorFile+".tmp"))
}

func TestOpen(t *testing.T) {
	dir := test.TempDir(t)

	for _, backend := range []string{"", BackendMemory, BackendFile, BackendPebble, BackendSQLite} {
		store, err := Open(Config{Backend: backend, DataDir: dir})
		require.NoError(t, err, backend)
		require.NoError(t, store.Close())
	}

	_, err := Open(Config{Backend: "redis", DataDir: dir})
	assert.Error(t, err)
}

func TestWithMetrics(t *testing.T) {
	collector := metrics.NewCollector()
	m := metrics.NewReplayMetrics(collector)
	store := WithMetrics(NewMemoryStore(), BackendMemory, m)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "demo", 1))
	require.Error(t, store.Save(ctx, "demo", -1))

	idx, err := store.Load(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	series, err := testutil.GatherAndCount(collector.GetRegistry(), metrics.MetricCursorSavesTotal)
	require.NoError(t, err)
	assert.Equal(t, 2, series, "one ok and one error series")

	plain := NewMemoryStore()
	assert.Same(t, plain, WithMetrics(plain, BackendMemory, nil))
}
