package balance

import (
	"errors"

	"github.com/meshforge/meshkit/registry"
)

// Strategy names a selection policy.
type Strategy string

const (
	StrategyRoundRobin       Strategy = "round_robin"
	StrategyLeastConnections Strategy = "least_connections"
	StrategyWeightedRandom   Strategy = "weighted_random"
	StrategyFirst            Strategy = "first"
)

// ErrNoInstanceAvailable is returned when no instance survives filtering.
var ErrNoInstanceAvailable = errors.New("no instance available")

// Balancer selects one instance from a candidate list. Pick is called on
// every outbound call and must be goroutine-safe.
type Balancer interface {
	// Pick selects one instance for the named service from the candidates.
	Pick(serviceName string, instances []registry.Instance) (registry.Instance, error)

	// Name returns the strategy name for logging.
	Name() Strategy
}

// New returns the balancer for a strategy. Unknown strategies fall back to
// first-instance selection.
func New(strategy Strategy) Balancer {
	switch strategy {
	case StrategyRoundRobin:
		return NewRoundRobin()
	case StrategyLeastConnections:
		return &LeastConnections{}
	case StrategyWeightedRandom:
		return &WeightedRandom{}
	default:
		return &First{}
	}
}

// filterCandidates keeps healthy instances, falling back to any instance
// that is not stopped when no healthy one exists.
func filterCandidates(instances []registry.Instance) []registry.Instance {
	healthy := make([]registry.Instance, 0, len(instances))
	for _, inst := range instances {
		if inst.Status == registry.StatusHealthy {
			healthy = append(healthy, inst)
		}
	}
	if len(healthy) > 0 {
		return healthy
	}

	available := make([]registry.Instance, 0, len(instances))
	for _, inst := range instances {
		if inst.Status != registry.StatusStopped {
			available = append(available, inst)
		}
	}
	return available
}
