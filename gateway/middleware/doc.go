// Package middleware contains the gateway's Gin middleware: request id
// assignment, bearer token authentication, request logging, CORS, rate
// limiting, and panic recovery.
//
// The gateway applies them in a fixed order: recovery, request id, auth,
// logging, cors, rate limit. Authentication runs before rate limiting, so an
// unauthenticated request never consumes rate limit budget.
package middleware
