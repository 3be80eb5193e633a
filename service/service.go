package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/meshforge/meshkit/gateway/middleware"
	"github.com/meshforge/meshkit/logger"
	"github.com/meshforge/meshkit/registry"
)

// startTime records when the process started for uptime reporting.
var startTime = time.Now()

// Service is one running mesh service instance.
type Service struct {
	cfg      Config
	reg      *registry.Registry
	engine   *gin.Engine
	log      *logger.Logger
	listener net.Listener
	server   *http.Server

	mu      sync.Mutex
	status  registry.Status
	stop    chan struct{}
	stopped bool
}

// New creates a service instance. Register routes on Engine() before Start.
func New(cfg Config, reg *registry.Registry, log *logger.Logger) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log = log.WithComponent("service").WithFields(map[string]interface{}{
		logger.FieldService:  cfg.Name,
		logger.FieldInstance: cfg.ID,
	})

	engine := gin.New()
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.RequestID())

	s := &Service{
		cfg:    cfg,
		reg:    reg,
		engine: engine,
		log:    log,
		status: registry.StatusStarting,
		stop:   make(chan struct{}),
	}

	engine.GET("/health", s.handleHealth)
	engine.GET("/info", s.handleInfo)
	engine.GET("/metrics", s.handleMetrics)

	return s, nil
}

// Engine returns the Gin engine for route registration.
func (s *Service) Engine() *gin.Engine {
	return s.engine
}

// ID returns the instance id.
func (s *Service) ID() string {
	return s.cfg.ID
}

// Status returns the instance's current lifecycle status.
func (s *Service) Status() registry.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus updates the instance's status locally and in the registry. A
// non-healthy status turns the /health report into a 503.
func (s *Service) SetStatus(status registry.Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	_ = s.reg.UpdateHealth(s.cfg.ID, status)
}

// Addr returns the bound listen address, valid after Start.
func (s *Service) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Start binds the port, registers the instance, and begins serving and
// heartbeating. A configured port of 0 binds an ephemeral port.
func (s *Service) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("service failed to bind %s: %w", addr, err)
	}
	s.listener = listener
	s.cfg.Port = listener.Addr().(*net.TCPAddr).Port

	s.server = &http.Server{Handler: s.engine}
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("service server error", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	s.mu.Lock()
	s.status = registry.StatusHealthy
	s.mu.Unlock()

	s.reg.Register(s.instance(registry.StatusHealthy))
	go s.heartbeat()

	s.log.Info("service started", logger.Fields("addr", s.Addr()))
	return nil
}

// Stop deregisters the instance and gracefully shuts down the server.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.status = registry.StatusStopped
	close(s.stop)
	s.mu.Unlock()

	_ = s.reg.UpdateHealth(s.cfg.ID, registry.StatusStopped)
	if err := s.reg.Deregister(s.cfg.ID); err != nil {
		s.log.Warn("deregister failed", logger.Fields(logger.FieldError, err.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("service shutdown: %w", err)
	}

	s.log.Info("service stopped")
	return nil
}

// heartbeat refreshes the instance's registration until Stop.
func (s *Service) heartbeat() {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			status := s.Status()
			if err := s.reg.UpdateHealth(s.cfg.ID, status); err != nil {
				// Evicted while running: re-register.
				s.reg.Register(s.instance(status))
			}
		}
	}
}

// instance builds the registry record for this service.
func (s *Service) instance(status registry.Status) registry.Instance {
	return registry.Instance{
		ID:            s.cfg.ID,
		Name:          s.cfg.Name,
		Category:      s.cfg.Category,
		Host:          s.cfg.Host,
		Port:          s.cfg.Port,
		Version:       s.cfg.Version,
		Status:        status,
		Dependencies:  s.cfg.Dependencies,
		Endpoints:     s.cfg.Endpoints,
		LastHeartbeat: time.Now(),
	}
}

// dependenciesHealthy reports whether every declared dependency has at least
// one healthy instance in the registry.
func (s *Service) dependenciesHealthy() bool {
	for _, dep := range s.cfg.Dependencies {
		healthy := false
		for _, inst := range s.reg.Discover(dep) {
			if inst.Status == registry.StatusHealthy {
				healthy = true
				break
			}
		}
		if !healthy {
			return false
		}
	}
	return true
}

// handleHealth reports instance health. A non-healthy instance status or a
// missing dependency degrades the report to 503.
func (s *Service) handleHealth(c *gin.Context) {
	depsHealthy := s.dependenciesHealthy()

	status := string(s.Status())
	httpStatus := http.StatusOK
	if status != string(registry.StatusHealthy) {
		httpStatus = http.StatusServiceUnavailable
	} else if !depsHealthy {
		status = string(registry.StatusDegraded)
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":               status,
		"service_name":         s.cfg.Name,
		"service_id":           s.cfg.ID,
		"version":              s.cfg.Version,
		"timestamp":            time.Now().UTC().Format(time.RFC3339),
		"dependencies_healthy": depsHealthy,
	})
}

// handleInfo reports the instance record and uptime.
func (s *Service) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service_name": s.cfg.Name,
		"service_id":   s.cfg.ID,
		"category":     s.cfg.Category,
		"version":      s.cfg.Version,
		"endpoints":    s.cfg.Endpoints,
		"dependencies": s.cfg.Dependencies,
		"uptime":       time.Since(startTime).String(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleMetrics reports runtime memory and goroutine metrics.
func (s *Service) handleMetrics(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"service_id": s.cfg.ID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"goroutines": runtime.NumGoroutine(),
		"memory": gin.H{
			"alloc_mb":       m.Alloc / 1024 / 1024,
			"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
			"sys_mb":         m.Sys / 1024 / 1024,
			"gc_runs":        m.NumGC,
		},
	})
}
