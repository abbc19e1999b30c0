package cursor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Backend names
const (
	BackendPebble = "pebble"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Store persists the replay cursor of each track across process lifetimes
type Store interface {
	// Load returns the saved index for track, or 0 when none was saved
	Load(ctx context.Context, track string) (int, error)
	// Save records index as the next line to process for track
	Save(ctx context.Context, track string, index int) error
	// Delete forgets the saved index for track
	Delete(ctx context.Context, track string) error
	// Close releases the store
	Close() error
}

// Config selects and configures a Store backend
type Config struct {
	Backend string
	DataDir string
}

// Open creates the configured store
func Open(cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendPebble:
		return OpenPebble(filepath.Join(cfg.DataDir, "cursors"))
	case BackendFile:
		return NewFileStore(cfg.DataDir)
	case BackendSQLite:
		return OpenSQLite(filepath.Join(cfg.DataDir, DefaultSQLiteFile))
	case BackendMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cursor backend: %s", cfg.Backend)
	}
}

func validate(track string, index int) error {
	if track == "" {
		return InvalidTrackError{Track: track, Reason: "track name cannot be empty"}
	}
	if index < 0 {
		return InvalidIndexError{Track: track, Index: index}
	}
	return nil
}
