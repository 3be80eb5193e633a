package mesh

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Call outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the OpenTelemetry instruments for the outbound call path.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	breakerOpen     metric.Int64Gauge
}

// NewMetrics creates the mesh metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestTotal, err := meter.Int64Counter("mesh.request.total",
		metric.WithDescription("Total outbound service requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mesh.request.total counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("mesh.request.duration",
		metric.WithDescription("Duration of outbound service requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mesh.request.duration histogram: %w", err)
	}

	breakerOpen, err := meter.Int64Gauge("mesh.circuit_breaker.open",
		metric.WithDescription("Circuit breaker state per service (1 open, 0 otherwise)"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mesh.circuit_breaker.open gauge: %w", err)
	}

	return &Metrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		breakerOpen:     breakerOpen,
	}, nil
}

// RecordCall records one call outcome and its latency.
func (m *Metrics) RecordCall(ctx context.Context, service, method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("method", method),
	)
	m.requestTotal.Add(ctx, 1, attrs, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
	m.requestDuration.Record(ctx, seconds, attrs)
}

// RecordBreakerState records whether a service's breaker is open.
func (m *Metrics) RecordBreakerState(ctx context.Context, service string, open bool) {
	if m == nil {
		return
	}
	var v int64
	if open {
		v = 1
	}
	m.breakerOpen.Record(ctx, v, metric.WithAttributes(
		attribute.String("service", service),
	))
}
