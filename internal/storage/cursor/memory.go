package cursor

import (
	"context"
	"sync"
)

// MemoryStore keeps cursors in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	cursors map[string]int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cursors: make(map[string]int)}
}

func (s *MemoryStore) Load(ctx context.Context, track string) (int, error) {
	if err := validate(track, 0); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursors[track], nil
}

func (s *MemoryStore) Save(ctx context.Context, track string, index int) error {
	if err := validate(track, index); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[track] = index
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, track string) error {
	if err := validate(track, 0); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, track)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
