package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meshforge/meshkit/registry"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(registry.Config{}, nil)
	t.Cleanup(reg.Close)
	return reg
}

func startService(t *testing.T, reg *registry.Registry, cfg Config) *Service {
	t.Helper()
	svc, err := New(cfg, reg, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	return svc
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStartRegistersInstance(t *testing.T) {
	reg := newTestRegistry(t)
	svc := startService(t, reg, Config{Name: "users"})

	instances := reg.Discover("users")
	if len(instances) != 1 {
		t.Fatalf("Discover returned %d instances, want 1", len(instances))
	}
	inst := instances[0]
	if inst.ID != svc.ID() {
		t.Errorf("instance id = %q, want %q", inst.ID, svc.ID())
	}
	if inst.Status != registry.StatusHealthy {
		t.Errorf("status = %q, want healthy", inst.Status)
	}
	if inst.Addr() != svc.Addr() {
		t.Errorf("registered addr = %q, serving addr = %q", inst.Addr(), svc.Addr())
	}
}

func TestStopDeregisters(t *testing.T) {
	reg := newTestRegistry(t)
	svc := startService(t, reg, Config{Name: "users"})

	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if got := reg.Discover("users"); len(got) != 0 {
		t.Errorf("instance still registered after Stop: %+v", got)
	}

	// Stop is idempotent.
	if err := svc.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() error: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	reg := newTestRegistry(t)
	svc := startService(t, reg, Config{Name: "users"})

	var body struct {
		Status              string `json:"status"`
		ServiceName         string `json:"service_name"`
		ServiceID           string `json:"service_id"`
		DependenciesHealthy bool   `json:"dependencies_healthy"`
	}
	code := getJSON(t, fmt.Sprintf("http://%s/health", svc.Addr()), &body)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body.Status != "healthy" {
		t.Errorf("status field = %q, want healthy", body.Status)
	}
	if body.ServiceName != "users" {
		t.Errorf("service_name = %q, want users", body.ServiceName)
	}
	if body.ServiceID != svc.ID() {
		t.Errorf("service_id = %q, want %q", body.ServiceID, svc.ID())
	}
	if !body.DependenciesHealthy {
		t.Error("dependencies_healthy = false with no dependencies")
	}
}

func TestHealthDegradesOnMissingDependency(t *testing.T) {
	reg := newTestRegistry(t)
	svc := startService(t, reg, Config{Name: "orders", Dependencies: []string{"users"}})

	url := fmt.Sprintf("http://%s/health", svc.Addr())

	var body struct {
		Status              string `json:"status"`
		DependenciesHealthy bool   `json:"dependencies_healthy"`
	}
	code := getJSON(t, url, &body)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 for missing dependency", code)
	}
	if body.DependenciesHealthy {
		t.Error("dependencies_healthy = true with no users instance")
	}

	// Registering a healthy dependency restores the report.
	reg.Register(registry.Instance{
		ID: "users-1", Name: "users", Host: "10.0.0.1", Port: 9000,
		Status: registry.StatusHealthy,
	})
	code = getJSON(t, url, &body)
	if code != http.StatusOK {
		t.Errorf("status = %d after dependency registered, want 200", code)
	}
}

func TestHealthReflectsInstanceStatus(t *testing.T) {
	reg := newTestRegistry(t)
	svc := startService(t, reg, Config{Name: "users"})
	url := fmt.Sprintf("http://%s/health", svc.Addr())

	if code := getJSON(t, url, nil); code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for a healthy instance", code)
	}

	svc.SetStatus(registry.StatusUnhealthy)

	var body struct {
		Status string `json:"status"`
	}
	if code := getJSON(t, url, &body); code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 for an unhealthy instance", code)
	}
	if body.Status != "unhealthy" {
		t.Errorf("status field = %q, want unhealthy", body.Status)
	}

	// The registry record follows the instance status.
	instances := reg.Discover("users")
	if len(instances) != 1 || instances[0].Status != registry.StatusUnhealthy {
		t.Errorf("registry record not updated: %+v", instances)
	}

	svc.SetStatus(registry.StatusHealthy)
	if code := getJSON(t, url, nil); code != http.StatusOK {
		t.Errorf("status = %d after recovery, want 200", code)
	}
}

func TestCustomRoutes(t *testing.T) {
	reg := newTestRegistry(t)
	svc, err := New(Config{Name: "users"}, reg, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	svc.Engine().GET("/list", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"users": []string{"ada"}})
	})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })

	var body struct {
		Users []string `json:"users"`
	}
	code := getJSON(t, fmt.Sprintf("http://%s/list", svc.Addr()), &body)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(body.Users) != 1 || body.Users[0] != "ada" {
		t.Errorf("body = %+v", body)
	}
}

func TestInfoAndMetricsEndpoints(t *testing.T) {
	reg := newTestRegistry(t)
	svc := startService(t, reg, Config{
		Name:      "users",
		Endpoints: []string{"/list"},
	})

	var info struct {
		ServiceName string   `json:"service_name"`
		Endpoints   []string `json:"endpoints"`
		Uptime      string   `json:"uptime"`
	}
	if code := getJSON(t, fmt.Sprintf("http://%s/info", svc.Addr()), &info); code != http.StatusOK {
		t.Fatalf("info status = %d, want 200", code)
	}
	if info.ServiceName != "users" || info.Uptime == "" {
		t.Errorf("info = %+v", info)
	}

	var metrics struct {
		Goroutines int `json:"goroutines"`
	}
	if code := getJSON(t, fmt.Sprintf("http://%s/metrics", svc.Addr()), &metrics); code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", code)
	}
	if metrics.Goroutines <= 0 {
		t.Errorf("goroutines = %d, want > 0", metrics.Goroutines)
	}
}

func TestHeartbeatRefreshesRegistration(t *testing.T) {
	reg := newTestRegistry(t)
	svc := startService(t, reg, Config{
		Name:              "users",
		HeartbeatInterval: 20 * time.Millisecond,
	})

	// Simulate eviction; the next heartbeat re-registers.
	if err := reg.Deregister(svc.ID()); err != nil {
		t.Fatalf("Deregister: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(reg.Discover("users")) == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("instance was not re-registered by heartbeat")
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing name")
	}

	cfg = Config{Name: "users", Port: 99999}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid port")
	}
}
