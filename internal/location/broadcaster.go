package location

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flowmesh/mockgps/internal/track"
)

// Broadcaster fans emitted records out to registered observers. It satisfies
// replay.Sink.
type Broadcaster struct {
	track     string
	mu        sync.RWMutex
	nextID    int
	observers map[int]Observer
	order     []int
}

// NewBroadcaster creates a broadcaster labelling updates with trackName
func NewBroadcaster(trackName string) *Broadcaster {
	return &Broadcaster{
		track:     trackName,
		observers: make(map[int]Observer),
	}
}

// Register adds an observer and returns a function that removes it
func (b *Broadcaster) Register(o Observer) (unregister func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.observers[id] = o
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Broadcaster) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.observers, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i:i], b.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered observers
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

// Emit delivers the record to every observer in registration order. A
// failing observer does not prevent delivery to the others; all failures are
// returned joined.
func (b *Broadcaster) Emit(ctx context.Context, index int, record track.Record) error {
	b.mu.RLock()
	observers := make([]Observer, 0, len(b.order))
	for _, id := range b.order {
		observers = append(observers, b.observers[id])
	}
	b.mu.RUnlock()

	u := NewUpdate(b.track, index, record)

	var errs []error
	for i, o := range observers {
		if err := o.OnLocation(ctx, u); err != nil {
			errs = append(errs, fmt.Errorf("observer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
