package cursor

import (
	"context"
	"time"

	"github.com/flowmesh/mockgps/internal/metrics"
)

// instrumentedStore records save latency and outcome for another Store
type instrumentedStore struct {
	Store
	backend string
	metrics *metrics.ReplayMetrics
}

// WithMetrics wraps store so that every Save is measured. A nil m returns store unchanged.
func WithMetrics(store Store, backend string, m *metrics.ReplayMetrics) Store {
	if m == nil {
		return store
	}
	return &instrumentedStore{Store: store, backend: backend, metrics: m}
}

func (s *instrumentedStore) Save(ctx context.Context, track string, index int) error {
	start := time.Now()
	err := s.Store.Save(ctx, track, index)
	s.metrics.RecordCursorSave(s.backend, time.Since(start), err)
	return err
}
