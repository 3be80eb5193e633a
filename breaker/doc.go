// Package breaker implements the per-instance circuit breaker state machine.
//
// A breaker guards one (service, instance) pair. It passes calls through
// while closed, rejects them immediately while open, and allows probationary
// calls while half-open. CallAllowed is the only read that can move an open
// breaker to half-open and must be evaluated immediately before every
// attempted call.
package breaker
