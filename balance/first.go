package balance

import (
	"github.com/meshforge/meshkit/registry"
)

// First selects the first instance in the filtered list. It is the default
// strategy when none is configured.
type First struct{}

// Pick selects the first candidate.
func (b *First) Pick(_ string, instances []registry.Instance) (registry.Instance, error) {
	candidates := filterCandidates(instances)
	if len(candidates) == 0 {
		return registry.Instance{}, ErrNoInstanceAvailable
	}
	return candidates[0], nil
}

// Name returns the strategy name.
func (b *First) Name() Strategy {
	return StrategyFirst
}
