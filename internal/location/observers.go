package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/flowmesh/mockgps/internal/logger"
)

// LogObserver writes every update to the log at debug level
type LogObserver struct {
	log zerolog.Logger
}

// NewLogObserver creates a log observer
func NewLogObserver() *LogObserver {
	return &LogObserver{log: logger.WithComponent("location")}
}

func (o *LogObserver) OnLocation(ctx context.Context, u Update) error {
	o.log.Debug().
		Str("provider", u.Provider).
		Str("track", u.Track).
		Int("index", u.Index).
		Float64("latitude", u.Latitude).
		Float64("longitude", u.Longitude).
		Float64("altitude", u.Altitude).
		Time("fix_time", u.Timestamp).
		Msg("Location")
	return nil
}

// JSONObserver writes one JSON document per update
type JSONObserver struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONObserver creates an observer writing JSON lines to w
func NewJSONObserver(w io.Writer) *JSONObserver {
	return &JSONObserver{enc: json.NewEncoder(w)}
}

func (o *JSONObserver) OnLocation(ctx context.Context, u Update) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(u); err != nil {
		return fmt.Errorf("failed to write location: %w", err)
	}
	return nil
}

// DisplayObserver keeps the most recent update for status displays
type DisplayObserver struct {
	mu     sync.RWMutex
	last   Update
	seen   bool
	onShow func(string)
}

// NewDisplayObserver creates a display observer. onShow, when set, receives
// the rendered text after every update.
func NewDisplayObserver(onShow func(string)) *DisplayObserver {
	return &DisplayObserver{onShow: onShow}
}

func (o *DisplayObserver) OnLocation(ctx context.Context, u Update) error {
	o.mu.Lock()
	o.last = u
	o.seen = true
	o.mu.Unlock()

	if o.onShow != nil {
		o.onShow(Render(u))
	}
	return nil
}

// Last returns the latest update, if any
func (o *DisplayObserver) Last() (Update, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last, o.seen
}

// Render formats an update for display
func Render(u Update) string {
	return fmt.Sprintf("index:%d\nlongitude:%v\nlatitude:%v\naltitude:%v",
		u.Index, u.Longitude, u.Latitude, u.Altitude)
}
