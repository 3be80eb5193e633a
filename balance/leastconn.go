package balance

import (
	"github.com/meshforge/meshkit/registry"
)

// LeastConnections selects the instance with the smallest request count.
// Ties are broken by list order.
type LeastConnections struct{}

// Pick selects the least-loaded candidate.
func (b *LeastConnections) Pick(_ string, instances []registry.Instance) (registry.Instance, error) {
	candidates := filterCandidates(instances)
	if len(candidates) == 0 {
		return registry.Instance{}, ErrNoInstanceAvailable
	}

	best := candidates[0]
	for _, inst := range candidates[1:] {
		if inst.RequestCount < best.RequestCount {
			best = inst
		}
	}
	return best, nil
}

// Name returns the strategy name.
func (b *LeastConnections) Name() Strategy {
	return StrategyLeastConnections
}
