package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/meshforge/meshkit/logger"
)

// Common registry errors.
var (
	ErrUnknownInstance = errors.New("unknown instance id")
)

// Config configures the registry.
type Config struct {
	// HeartbeatTTL is how long an instance may go without a heartbeat before
	// the sweeper evicts it. Zero disables eviction.
	HeartbeatTTL time.Duration `yaml:"heartbeat_ttl" mapstructure:"heartbeat_ttl"`
	// SweepInterval is how often expired instances are evicted.
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.HeartbeatTTL == 0 {
		c.HeartbeatTTL = 90 * time.Second
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 30 * time.Second
	}
}

// Registry is the in-memory service directory. It maintains two indices,
// id to record and name to ids, updated together under one lock.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*Instance
	byName map[string][]string

	cfg  Config
	log  *logger.Logger
	stop chan struct{}
	once sync.Once
}

// New creates a registry. If cfg.HeartbeatTTL is non-zero a background
// sweeper evicts instances whose heartbeat has expired; call Close to stop it.
func New(cfg Config, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	r := &Registry{
		byID:   make(map[string]*Instance),
		byName: make(map[string][]string),
		cfg:    cfg,
		log:    log.WithComponent("registry"),
		stop:   make(chan struct{}),
	}
	if cfg.HeartbeatTTL > 0 {
		interval := cfg.SweepInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		go r.sweep(interval)
	}
	return r
}

// Register inserts or replaces an instance by id. Registration is idempotent:
// re-registering an existing id overwrites the record without duplicating it
// in the name index.
func (r *Registry) Register(inst Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst.Status == "" {
		inst.Status = StatusStarting
	}
	if inst.LastHeartbeat.IsZero() {
		inst.LastHeartbeat = time.Now()
	}

	if prev, ok := r.byID[inst.ID]; ok {
		if prev.Name != inst.Name {
			r.unlinkLocked(prev.Name, inst.ID)
			r.byName[inst.Name] = append(r.byName[inst.Name], inst.ID)
		}
	} else {
		r.byName[inst.Name] = append(r.byName[inst.Name], inst.ID)
	}

	stored := inst.clone()
	r.byID[inst.ID] = &stored

	r.log.Info("service registered", logger.Fields(
		logger.FieldService, inst.Name,
		logger.FieldInstance, inst.ID,
		"addr", inst.Addr(),
	))
}

// Deregister removes an instance from both indices.
// Returns ErrUnknownInstance if the id is not registered.
func (r *Registry) Deregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.byID[id]
	if !ok {
		return ErrUnknownInstance
	}
	delete(r.byID, id)
	r.unlinkLocked(inst.Name, id)

	r.log.Info("service deregistered", logger.Fields(
		logger.FieldService, inst.Name,
		logger.FieldInstance, id,
	))
	return nil
}

// Discover returns a snapshot of the instances registered under a name.
// An unknown name yields an empty list, not an error.
func (r *Registry) Discover(name string) []Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byName[name]
	out := make([]Instance, 0, len(ids))
	for _, id := range ids {
		if inst, ok := r.byID[id]; ok {
			out = append(out, inst.clone())
		}
	}
	return out
}

// ListAll returns a full name-to-instances snapshot.
func (r *Registry) ListAll() map[string][]Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]Instance, len(r.byName))
	for name, ids := range r.byName {
		list := make([]Instance, 0, len(ids))
		for _, id := range ids {
			if inst, ok := r.byID[id]; ok {
				list = append(list, inst.clone())
			}
		}
		out[name] = list
	}
	return out
}

// UpdateHealth sets the status of an instance and refreshes its heartbeat.
// Returns ErrUnknownInstance if the id is not registered.
func (r *Registry) UpdateHealth(id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.byID[id]
	if !ok {
		return ErrUnknownInstance
	}
	inst.Status = status
	inst.LastHeartbeat = time.Now()
	return nil
}

// RecordCall updates an instance's call counters after an outbound attempt:
// the request count always increments, the error count when errored is true,
// and the rolling average response time folds in the new latency.
func (r *Registry) RecordCall(id string, errored bool, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.byID[id]
	if !ok {
		return
	}
	inst.RequestCount++
	if errored {
		inst.ErrorCount++
	}
	n := inst.RequestCount
	inst.AvgResponseTime = time.Duration((int64(inst.AvgResponseTime)*(n-1) + int64(latency)) / n)
}

// Close stops the heartbeat sweeper.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.stop) })
}

// unlinkLocked removes id from the name index; caller holds the lock.
func (r *Registry) unlinkLocked(name, id string) {
	ids := r.byName[name]
	for i, existing := range ids {
		if existing == id {
			r.byName[name] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(r.byName[name]) == 0 {
		delete(r.byName, name)
	}
}

// sweep periodically evicts instances whose heartbeat has expired.
func (r *Registry) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictExpired()
		}
	}
}

func (r *Registry) evictExpired() {
	cutoff := time.Now().Add(-r.cfg.HeartbeatTTL)

	r.mu.Lock()
	var evicted []string
	for id, inst := range r.byID {
		if inst.LastHeartbeat.Before(cutoff) {
			delete(r.byID, id)
			r.unlinkLocked(inst.Name, id)
			evicted = append(evicted, id)
		}
	}
	r.mu.Unlock()

	for _, id := range evicted {
		r.log.Warn("instance evicted, heartbeat expired", logger.Fields(
			logger.FieldInstance, id,
		))
	}
}
