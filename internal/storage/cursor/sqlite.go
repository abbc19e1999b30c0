package cursor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/flowmesh/mockgps/internal/logger"
)

// DefaultSQLiteFile is the database file name inside the data directory
const DefaultSQLiteFile = "cursors.db"

const createCursorsTable = `CREATE TABLE IF NOT EXISTS cursors (
	track      TEXT PRIMARY KEY,
	line_index INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps cursors in a single SQLite table
type SQLiteStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// OpenSQLite opens (or creates) the cursor database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cursor directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(createCursorsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cursors table: %w", err)
	}

	s := &SQLiteStore{
		db:   db,
		path: path,
		log:  logger.WithComponent("cursor.sqlite"),
	}
	s.log.Info().Str("path", path).Msg("Cursor store opened")
	return s, nil
}

func (s *SQLiteStore) Load(ctx context.Context, track string) (int, error) {
	if err := validate(track, 0); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ClosedError{Backend: BackendSQLite}
	}

	var index int64
	err := s.db.QueryRowContext(ctx, `SELECT line_index FROM cursors WHERE track = ?`, track).Scan(&index)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cursor: %w", err)
	}
	if index < 0 {
		return 0, fmt.Errorf("corrupt cursor value for track %s: %d", track, index)
	}
	return int(index), nil
}

func (s *SQLiteStore) Save(ctx context.Context, track string, index int) error {
	if err := validate(track, index); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ClosedError{Backend: BackendSQLite}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cursors (track, line_index, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(track) DO UPDATE SET line_index = excluded.line_index, updated_at = excluded.updated_at`,
		track, int64(index), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to write cursor: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, track string) error {
	if err := validate(track, 0); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ClosedError{Backend: BackendSQLite}
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cursors WHERE track = ?`, track); err != nil {
		return fmt.Errorf("failed to delete cursor: %w", err)
	}
	return nil
}

// Close closes the database. Further calls fail with ClosedError.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("failed to close sqlite db: %w", err)
	}
	s.log.Info().Str("path", s.path).Msg("Cursor store closed")
	return nil
}
