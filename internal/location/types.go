package location

import (
	"context"
	"time"

	"github.com/flowmesh/mockgps/internal/track"
)

// Provider is the name emitted updates are attributed to
const Provider = "mockgps"

// Update is a simulated location fix
type Update struct {
	Provider  string    `json:"provider"`
	Track     string    `json:"track,omitempty"`
	Index     int       `json:"index"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUpdate builds an update from a replayed record
func NewUpdate(trackName string, index int, r track.Record) Update {
	return Update{
		Provider:  Provider,
		Track:     trackName,
		Index:     index,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Altitude:  r.Altitude,
		Timestamp: r.Timestamp,
	}
}

// Observer consumes location updates
type Observer interface {
	OnLocation(ctx context.Context, u Update) error
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ctx context.Context, u Update) error

// OnLocation calls f
func (f ObserverFunc) OnLocation(ctx context.Context, u Update) error {
	return f(ctx, u)
}
