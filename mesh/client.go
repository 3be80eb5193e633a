package mesh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/meshforge/meshkit/balance"
	"github.com/meshforge/meshkit/breaker"
	apperrors "github.com/meshforge/meshkit/errors"
	"github.com/meshforge/meshkit/logger"
	"github.com/meshforge/meshkit/registry"
)

// backoffStep is the linear backoff unit between retry attempts: the sleep
// before retry n is backoffStep * n.
const backoffStep = 500 * time.Millisecond

// Client is the outbound call path. It composes the registry, a load
// balancer, per-instance circuit breakers, and an HTTP client into one
// "call service X" operation.
type Client struct {
	cfg      Config
	registry *registry.Registry
	balancer balance.Balancer
	http     *http.Client
	log      *logger.Logger
	metrics  *Metrics

	mu       sync.Mutex
	breakers map[string]*breaker.Breaker
}

// New creates a mesh client.
func New(cfg Config, reg *registry.Registry, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	c := &Client{
		cfg:      cfg,
		registry: reg,
		balancer: balance.New(cfg.Strategy),
		// No client-level timeout: each attempt carries its own deadline.
		http:     &http.Client{},
		log:      log.WithComponent("mesh"),
		breakers: make(map[string]*breaker.Breaker),
	}

	if cfg.Meter != nil {
		m, err := NewMetrics(cfg.Meter)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}
	return c, nil
}

// Call performs one logical outbound call: discovery, selection, breaker
// gate, then up to RetryCount+1 HTTP attempts with per-attempt timeouts.
//
// The returned error is non-nil exactly when no HTTP exchange completed
// (no instances, circuit open, timeout, transport failure); a downstream
// 4xx/5xx is a completed exchange and returns a nil error. The Response
// always carries the correlation id, retries consumed, and latency.
func (c *Client) Call(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	c.applyDefaults(&req)

	resp := Response{ID: req.ID}

	var span trace.Span
	if req.TracingEnabled && c.cfg.Tracer != nil {
		ctx, span = c.cfg.Tracer.Start(ctx, "mesh.call",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("mesh.service", req.Service),
				attribute.String("http.method", req.Method),
				attribute.String("http.path", req.Path),
			),
		)
		defer span.End()
	}

	instances := c.registry.Discover(req.Service)
	if len(instances) == 0 {
		return c.fail(ctx, span, &resp, req, start, apperrors.NoInstances(req.Service))
	}

	selected, err := c.balancer.Pick(req.Service, instances)
	if err != nil {
		return c.fail(ctx, span, &resp, req, start, apperrors.NoInstances(req.Service))
	}

	var br *breaker.Breaker
	if req.BreakerEnabled {
		br = c.breakerFor(req.Service, selected.ID)
		if !br.CallAllowed() {
			c.metrics.RecordBreakerState(ctx, req.Service, true)
			return c.fail(ctx, span, &resp, req, start, apperrors.CircuitOpen(req.Service))
		}
	}

	url := fmt.Sprintf("http://%s%s", selected.Addr(), req.Path)
	var lastErr error

	for attempt := 0; attempt <= req.RetryCount; attempt++ {
		httpResp, attemptErr := c.attempt(ctx, req, url)
		if attemptErr == nil {
			c.recordExchange(ctx, &resp, req, selected.ID, br, httpResp, attempt, start)
			if span != nil {
				span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
			}
			return resp, nil
		}
		lastErr = attemptErr

		if attempt < req.RetryCount {
			if err := c.backoff(ctx, attempt+1); err != nil {
				break
			}
		}
	}

	if br != nil {
		br.RecordFailure()
		c.metrics.RecordBreakerState(ctx, req.Service, br.State() == breaker.StateOpen)
	}

	var appErr *apperrors.AppError
	if isTimeout(lastErr) {
		appErr = apperrors.Timeout(req.Service)
	} else {
		appErr = apperrors.ConnectionFailed(req.Service, lastErr)
	}
	resp.RetriesUsed = req.RetryCount
	return c.fail(ctx, span, &resp, req, start, appErr)
}

// BreakerState reports the breaker state for a (service, instance) pair.
// The second return is false when no breaker has been created yet.
func (c *Client) BreakerState(service, instanceID string) (breaker.State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	br, ok := c.breakers[service+":"+instanceID]
	if !ok {
		return breaker.StateClosed, false
	}
	return br.State(), true
}

// applyDefaults fills request fields from the client configuration.
func (c *Client) applyDefaults(req *Request) {
	if req.ID == "" {
		req.ID = NewRequest(req.Service, req.Method, req.Path).ID
	}
	if req.Timeout <= 0 {
		req.Timeout = c.cfg.Timeout
	}
	if req.RetryCount < 0 {
		req.RetryCount = *c.cfg.RetryCount
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
}

// attempt performs a single HTTP exchange with its own timeout.
func (c *Client) attempt(ctx context.Context, req Request, url string) (*http.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, url, body)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}

	// Drain the body within the attempt's deadline.
	respBody, err := io.ReadAll(httpResp.Body)
	_ = httpResp.Body.Close()
	if err != nil {
		return nil, err
	}
	httpResp.Body = io.NopCloser(bytes.NewReader(respBody))
	return httpResp, nil
}

// recordExchange fills the response from a completed HTTP exchange and
// updates instance counters, breaker, and metrics. Any received response
// ends the retry loop: a downstream 4xx/5xx is not retried.
func (c *Client) recordExchange(ctx context.Context, resp *Response, req Request, instanceID string, br *breaker.Breaker, httpResp *http.Response, attempt int, start time.Time) {
	body, _ := io.ReadAll(httpResp.Body)
	_ = httpResp.Body.Close()

	resp.StatusCode = httpResp.StatusCode
	resp.Headers = flattenHeaders(httpResp.Header)
	resp.Body = body
	resp.RetriesUsed = attempt
	resp.Latency = time.Since(start)

	c.registry.RecordCall(instanceID, httpResp.StatusCode >= 400, resp.Latency)

	if br != nil {
		if httpResp.StatusCode < 500 {
			br.RecordSuccess()
		} else {
			br.RecordFailure()
		}
		c.metrics.RecordBreakerState(ctx, req.Service, br.State() == breaker.StateOpen)
	}

	outcome := OutcomeSuccess
	if httpResp.StatusCode >= 400 {
		outcome = OutcomeError
	}
	c.metrics.RecordCall(ctx, req.Service, req.Method, outcome, resp.Latency.Seconds())

	c.log.Debug("call completed", logger.Fields(
		logger.FieldService, req.Service,
		logger.FieldRequestID, req.ID,
		logger.FieldStatus, resp.StatusCode,
		"retries", resp.RetriesUsed,
		logger.FieldDuration, resp.Latency.Milliseconds(),
	))
}

// fail finalizes a response for an outcome with no completed exchange.
func (c *Client) fail(ctx context.Context, span trace.Span, resp *Response, req Request, start time.Time, appErr *apperrors.AppError) (Response, error) {
	resp.StatusCode = appErr.HTTPStatus
	resp.Error = appErr.Message
	resp.Latency = time.Since(start)

	c.metrics.RecordCall(ctx, req.Service, req.Method, OutcomeError, resp.Latency.Seconds())
	if span != nil {
		span.SetStatus(codes.Error, appErr.Message)
	}

	c.log.Warn("call failed", logger.Fields(
		logger.FieldService, req.Service,
		logger.FieldRequestID, req.ID,
		logger.FieldError, appErr.Message,
		"retries", resp.RetriesUsed,
	))
	return *resp, appErr
}

// backoff sleeps 500ms multiplied by the attempt number, honoring context
// cancellation.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(backoffStep * time.Duration(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// breakerFor returns the breaker for a (service, instance) pair, creating
// it lazily with the configured thresholds.
func (c *Client) breakerFor(service, instanceID string) *breaker.Breaker {
	key := service + ":" + instanceID

	c.mu.Lock()
	defer c.mu.Unlock()

	br, ok := c.breakers[key]
	if !ok {
		cfg := breaker.Config{
			Name:             key,
			FailureThreshold: c.cfg.Breaker.FailureThreshold,
			RecoveryTimeout:  c.cfg.Breaker.RecoveryTimeout,
			SuccessThreshold: c.cfg.Breaker.SuccessThreshold,
			OnStateChange: func(name string, from, to breaker.State) {
				c.log.Warn("breaker state changed", logger.Fields(
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				))
			},
		}
		br = breaker.New(cfg)
		c.breakers[key] = br
	}
	return br
}

// isTimeout reports whether a transport error was a timeout.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// flattenHeaders keeps the first value of each header.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}
