package mesh

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/meshforge/meshkit/balance"
)

// BreakerConfig carries the circuit breaker thresholds applied to every
// lazily created per-instance breaker.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout" mapstructure:"recovery_timeout"`
	SuccessThreshold int           `yaml:"success_threshold" mapstructure:"success_threshold"`
}

// ApplyDefaults fills in zero-value fields with the standard thresholds.
func (c *BreakerConfig) ApplyDefaults() {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout == 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = 3
	}
}

// Config configures the mesh client.
type Config struct {
	// Strategy selects the load balancing policy.
	Strategy balance.Strategy `yaml:"strategy" mapstructure:"strategy"`

	// Timeout is the default per-attempt timeout for requests that do not
	// set one.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// RetryCount is the default retry budget for requests that do not set
	// one. Nil means the standard budget of 3; an explicit zero disables
	// retries.
	RetryCount *int `yaml:"retry_count" mapstructure:"retry_count"`

	// Breaker configures the per-instance circuit breakers.
	Breaker BreakerConfig `yaml:"breaker" mapstructure:"breaker"`

	// Meter enables OpenTelemetry metrics. Nil disables them.
	Meter metric.Meter `yaml:"-" mapstructure:"-"`

	// Tracer enables per-call spans for requests with tracing on. Nil
	// disables them.
	Tracer trace.Tracer `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Strategy == "" {
		c.Strategy = balance.StrategyRoundRobin
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RetryCount == nil {
		retries := 3
		c.RetryCount = &retries
	}
	c.Breaker.ApplyDefaults()
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.RetryCount != nil && *c.RetryCount < 0 {
		return fmt.Errorf("mesh: retry_count must be non-negative (got: %d)", *c.RetryCount)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("mesh: timeout must be positive")
	}
	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("mesh: breaker.failure_threshold must be at least 1")
	}
	if c.Breaker.SuccessThreshold < 1 {
		return fmt.Errorf("mesh: breaker.success_threshold must be at least 1")
	}
	return nil
}
