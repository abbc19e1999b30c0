package cursor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flowmesh/mockgps/internal/logger"
	"github.com/rs/zerolog"
)

// DefaultCursorFile is the file name used by FileStore
const DefaultCursorFile = "cursors.json"

type fileEntry struct {
	Index     int       `json:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStore keeps all cursors in one JSON document rewritten atomically on every change
type FileStore struct {
	mu       sync.RWMutex
	filePath string
	cursors  map[string]fileEntry
	log      zerolog.Logger
}

// NewFileStore loads (or prepares) the cursor file in dir
func NewFileStore(dir string) (*FileStore, error) {
	s := &FileStore{
		filePath: filepath.Join(dir, DefaultCursorFile),
		cursors:  make(map[string]fileEntry),
		log:      logger.WithComponent("cursor.file"),
	}

	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load cursors: %w", err)
		}
		s.log.Info().Str("file", s.filePath).Msg("Cursor file does not exist, will be created on first save")
	}

	return s, nil
}

func (s *FileStore) Load(ctx context.Context, track string) (int, error) {
	if err := validate(track, 0); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursors[track].Index, nil
}

func (s *FileStore) Save(ctx context.Context, track string, index int) error {
	if err := validate(track, index); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.cursors[track]
	s.cursors[track] = fileEntry{Index: index, UpdatedAt: time.Now().UTC()}
	if err := s.flush(); err != nil {
		if existed {
			s.cursors[track] = prev
		} else {
			delete(s.cursors, track)
		}
		return fmt.Errorf("failed to persist cursor: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, track string) error {
	if err := validate(track, 0); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cursors[track]; !ok {
		return nil
	}
	delete(s.cursors, track)
	if err := s.flush(); err != nil {
		return fmt.Errorf("failed to persist cursor deletion: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	cursors := make(map[string]fileEntry)
	if err := json.Unmarshal(data, &cursors); err != nil {
		return fmt.Errorf("failed to unmarshal cursors: %w", err)
	}
	s.cursors = cursors
	return nil
}

// flush writes the document; the caller holds the lock
func (s *FileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create cursor directory: %w", err)
	}

	data, err := json.MarshalIndent(s.cursors, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cursors: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cursor file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		//nolint:errcheck // Clean up temp file, ignore remove error
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to rename cursor file: %w", err)
	}

	return nil
}
