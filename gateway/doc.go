// Package gateway implements the API gateway: the single entrypoint that
// authenticates callers, rate limits them, and proxies /api/:service/*path
// requests into the mesh.
//
// The gateway also exposes the control surface of the registry: service
// listing and lookup, instance registration and deregistration, and health
// status updates.
package gateway
