// Package errors provides unified error handling for meshkit. It implements
// structured error types with machine-readable codes, HTTP status mapping,
// and retryable detection covering the mesh failure taxonomy: no-instance,
// circuit-open, timeout, downstream, authentication, and rate-limit errors.
package errors
