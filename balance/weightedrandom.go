package balance

import (
	"math/rand"

	"github.com/meshforge/meshkit/registry"
)

// WeightedRandom draws an instance with probability proportional to the
// inverse of its error rate: weight = 1 / (errorRate + 0.1). An instance
// that has never errored keeps the maximum weight of 10; one failing every
// call approaches weight 0.9, never zero.
type WeightedRandom struct {
	// randFloat overrides the random source in tests.
	randFloat func() float64
}

// Pick draws a candidate proportionally to its weight.
func (b *WeightedRandom) Pick(_ string, instances []registry.Instance) (registry.Instance, error) {
	candidates := filterCandidates(instances)
	if len(candidates) == 0 {
		return registry.Instance{}, ErrNoInstanceAvailable
	}

	weights := make([]float64, len(candidates))
	var total float64
	for i, inst := range candidates {
		w := 1.0 / (inst.ErrorRate() + 0.1)
		weights[i] = w
		total += w
	}

	randFloat := b.randFloat
	if randFloat == nil {
		randFloat = rand.Float64
	}
	r := randFloat() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return candidates[i], nil
		}
	}
	// Floating point underflow can leave r at exactly zero.
	return candidates[len(candidates)-1], nil
}

// Name returns the strategy name.
func (b *WeightedRandom) Name() Strategy {
	return StrategyWeightedRandom
}
