package balance

import (
	"sync"

	"github.com/meshforge/meshkit/registry"
)

// RoundRobin distributes selections evenly across instances using one
// monotonic counter per service name. The counter increments on every
// selection regardless of the call's outcome and is shared by all
// concurrent selections for that service.
type RoundRobin struct {
	mu       sync.Mutex
	counters map[string]uint64
}

// NewRoundRobin creates a round-robin balancer.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{counters: make(map[string]uint64)}
}

// Pick selects the next instance in rotation for the service.
func (b *RoundRobin) Pick(serviceName string, instances []registry.Instance) (registry.Instance, error) {
	candidates := filterCandidates(instances)
	if len(candidates) == 0 {
		return registry.Instance{}, ErrNoInstanceAvailable
	}

	b.mu.Lock()
	index := b.counters[serviceName] % uint64(len(candidates))
	b.counters[serviceName]++
	b.mu.Unlock()

	return candidates[index], nil
}

// Name returns the strategy name.
func (b *RoundRobin) Name() Strategy {
	return StrategyRoundRobin
}
