package source

import (
	"errors"

	"github.com/shaunagostinho/komsi-bridge/internal/vehicle"
)

// ErrNoState is returned by Read before the provider has any snapshot.
var ErrNoState = errors.New("source: no state available yet")

// ErrClosed is returned by Read on a provider that is not connected.
var ErrClosed = errors.New("source: not connected")

// Provider is the interface that all vehicle state sources implement.
// The demo simulator is built in; real simulators push snapshots through
// the HTTP API into a PushProvider.
type Provider interface {
	// Name returns the human-readable name of this source.
	Name() string
	// Connect prepares the source for reading.
	Connect() error
	// Close releases the source.
	Close() error
	// Read returns the most recent snapshot. The returned value is a copy
	// and may be compared without further locking.
	Read() (vehicle.State, error)
}
