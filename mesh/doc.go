// Package mesh implements the outbound call path: discover instances for a
// service, select one through the load balancer, gate the call through the
// instance's circuit breaker, then attempt the HTTP exchange with per-attempt
// timeouts and linear backoff between retries.
//
// Every call outcome is recorded: instance counters on the registry, breaker
// state, and OpenTelemetry metrics (request count by service/method/outcome,
// latency histogram, breaker-open gauge).
package mesh
