package mesh

import (
	"time"

	"github.com/google/uuid"
)

// Request describes one logical outbound call to a named service.
type Request struct {
	// ID is the correlation id, echoed on the response.
	ID string
	// Service is the target service name in the registry.
	Service string
	// Method is the HTTP method.
	Method string
	// Path is the request path on the target instance.
	Path string
	// Headers are forwarded verbatim.
	Headers map[string]string
	// Body is the optional request body.
	Body []byte
	// Timeout bounds each individual attempt, not the overall call. Zero
	// falls back to the client's configured default.
	Timeout time.Duration
	// RetryCount is the number of retries after the first attempt. Negative
	// falls back to the client's configured default.
	RetryCount int
	// BreakerEnabled gates the call through the instance's circuit breaker.
	BreakerEnabled bool
	// TracingEnabled wraps the call in a span when a tracer is configured.
	TracingEnabled bool
}

// NewRequest creates a request with the standard defaults: a fresh
// correlation id, breaker and tracing on. The per-attempt timeout and the
// retry budget are left unset so the client resolves them from its
// configuration at call time.
func NewRequest(service, method, path string) Request {
	return Request{
		ID:             uuid.New().String(),
		Service:        service,
		Method:         method,
		Path:           path,
		Headers:        make(map[string]string),
		RetryCount:     -1,
		BreakerEnabled: true,
		TracingEnabled: true,
	}
}

// Response is the result of an outbound call.
type Response struct {
	// ID is the correlation id of the originating request.
	ID string
	// StatusCode is the HTTP status of the exchange, or the mesh-assigned
	// status (408, 500, 503) when no exchange completed.
	StatusCode int
	// Headers are the downstream response headers.
	Headers map[string]string
	// Body is the downstream response body.
	Body []byte
	// Latency is the wall-clock duration of the whole call including retries.
	Latency time.Duration
	// RetriesUsed is the number of retries consumed before the outcome.
	RetriesUsed int
	// Error is non-empty whenever the outcome was not a completed HTTP
	// exchange. A response with a non-empty Error is a failed call
	// regardless of StatusCode.
	Error string
}

// Failed reports whether the call completed without an HTTP exchange.
func (r *Response) Failed() bool {
	return r.Error != ""
}
