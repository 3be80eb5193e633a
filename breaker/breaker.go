package breaker

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen rejects all requests without a network attempt.
	StateOpen
	// StateHalfOpen allows limited probe requests to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config configures a circuit breaker.
type Config struct {
	// Name identifies this breaker for metrics/logging, conventionally
	// "service:instance".
	Name string
	// FailureThreshold is the consecutive-failure count that opens the circuit.
	FailureThreshold int
	// RecoveryTimeout is how long after the last failure an open breaker
	// waits before allowing a half-open probe.
	RecoveryTimeout time.Duration
	// SuccessThreshold is the consecutive-success count (while half-open)
	// that closes the circuit.
	SuccessThreshold int
	// OnStateChange is called when state changes.
	OnStateChange func(name string, from, to State)

	// now overrides the clock in tests.
	now func() time.Time
}

// DefaultConfig returns the standard breaker thresholds.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 3,
	}
}

// Breaker is a consecutive-failure tracking state machine for one
// (service, instance) pair.
type Breaker struct {
	cfg Config

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time
}

// New creates a breaker in the closed state.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 60 * time.Second
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 3
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &Breaker{cfg: cfg, state: StateClosed}
}

// CallAllowed reports whether a call may proceed. It is the sole trigger for
// the open to half-open transition: once RecoveryTimeout has elapsed since
// the last failure, the breaker moves to half-open and the call is allowed
// as a probe.
func (b *Breaker) CallAllowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.cfg.now().Sub(b.lastFailure) >= b.cfg.RecoveryTimeout {
			b.toHalfOpen()
			return true
		}
		return false
	}
	return true
}

// RecordSuccess records a successful call. While half-open it advances the
// consecutive-success counter and closes the circuit at SuccessThreshold;
// while closed it resets the failure counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.toClosed()
		}
	case StateClosed:
		b.failures = 0
	}
}

// RecordFailure records a failed call. It always stamps the failure time and
// increments the failure counter; a half-open breaker re-trips on any single
// failure, a closed one trips at FailureThreshold. Counters reset only on
// the half-open and closed transitions.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.cfg.now()

	switch b.state {
	case StateHalfOpen:
		b.toOpen()
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.toOpen()
		}
	}
}

// State returns the current state without side effects.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// --- named transitions; caller holds the lock ---

func (b *Breaker) toOpen() {
	b.transition(StateOpen)
}

func (b *Breaker) toHalfOpen() {
	b.successes = 0
	b.transition(StateHalfOpen)
}

func (b *Breaker) toClosed() {
	b.failures = 0
	b.successes = 0
	b.transition(StateClosed)
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}
