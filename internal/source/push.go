package source

import (
	"sync"

	"github.com/shaunagostinho/komsi-bridge/internal/vehicle"
)

// PushProvider holds the latest snapshot delivered by an external simulator
// plugin.
type PushProvider struct {
	mu    sync.Mutex
	state vehicle.State
	have  bool
}

func NewPushProvider() *PushProvider {
	return &PushProvider{}
}

func (p *PushProvider) Name() string   { return "Push (HTTP)" }
func (p *PushProvider) Connect() error { return nil }
func (p *PushProvider) Close() error   { return nil }

// Update replaces the current snapshot.
func (p *PushProvider) Update(s vehicle.State) {
	p.mu.Lock()
	p.state = s
	p.have = true
	p.mu.Unlock()
}

func (p *PushProvider) Read() (vehicle.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.have {
		return vehicle.State{}, ErrNoState
	}
	return p.state, nil
}
