package cursor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/flowmesh/mockgps/internal/logger"
	"github.com/rs/zerolog"
)

const keyPrefix = "cursor/"

// PebbleStore keeps cursors in a Pebble database, one key per track
type PebbleStore struct {
	mu  sync.RWMutex
	db  *pebble.DB
	dir string
	log zerolog.Logger
}

// OpenPebble opens (or creates) the cursor database in dir
func OpenPebble(dir string) (*PebbleStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cursor directory: %w", err)
	}

	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open Pebble DB: %w", err)
	}

	s := &PebbleStore{
		db:  db,
		dir: dir,
		log: logger.WithComponent("cursor.pebble"),
	}
	s.log.Info().Str("dir", dir).Msg("Cursor store opened")
	return s, nil
}

func encodeKey(track string) []byte {
	return []byte(keyPrefix + track)
}

func encodeIndex(index int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(index))
	return buf
}

func decodeIndex(data []byte) (int, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupt cursor value: expected 8 bytes, got %d", len(data))
	}
	return int(binary.BigEndian.Uint64(data)), nil
}

func (s *PebbleStore) Load(ctx context.Context, track string) (int, error) {
	if err := validate(track, 0); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ClosedError{Backend: BackendPebble}
	}

	value, closer, err := s.db.Get(encodeKey(track))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cursor: %w", err)
	}
	defer closer.Close()

	return decodeIndex(value)
}

func (s *PebbleStore) Save(ctx context.Context, track string, index int) error {
	if err := validate(track, index); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ClosedError{Backend: BackendPebble}
	}

	if err := s.db.Set(encodeKey(track), encodeIndex(index), pebble.Sync); err != nil {
		return fmt.Errorf("failed to write cursor: %w", err)
	}
	return nil
}

func (s *PebbleStore) Delete(ctx context.Context, track string) error {
	if err := validate(track, 0); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ClosedError{Backend: BackendPebble}
	}

	if err := s.db.Delete(encodeKey(track), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete cursor: %w", err)
	}
	return nil
}

// Close closes the database. Further calls fail with ClosedError.
func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("failed to close Pebble DB: %w", err)
	}
	s.log.Info().Str("dir", s.dir).Msg("Cursor store closed")
	return nil
}
