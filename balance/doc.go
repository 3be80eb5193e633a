// Package balance selects one service instance among the candidates a
// discovery returned. Selection first narrows the list to healthy instances,
// falling back to any instance that is not stopped, then applies the
// configured strategy:
//
//   - RoundRobin:        per-service monotonic counter, even distribution
//   - LeastConnections:  lowest request count, ties broken by list order
//   - WeightedRandom:    draw proportional to 1/(errorRate+0.1)
//   - First:             first instance in the filtered list (default)
//
// Strategies are stateless apart from the process-wide round-robin counters.
package balance
