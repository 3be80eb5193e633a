package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestRegistry() *Registry {
	return New(Config{}, nil)
}

func testInstance(id, name string, port int) Instance {
	return Instance{
		ID:      id,
		Name:    name,
		Host:    "127.0.0.1",
		Port:    port,
		Version: "1.0.0",
		Status:  StatusHealthy,
	}
}

func TestRegistry_RegisterAndDiscover(t *testing.T) {
	r := newTestRegistry()
	defer r.Close()

	r.Register(testInstance("u1", "user-service", 8081))
	r.Register(testInstance("u2", "user-service", 8082))

	instances := r.Discover("user-service")
	if len(instances) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(instances))
	}
}

func TestRegistry_DiscoverUnknownReturnsEmpty(t *testing.T) {
	r := newTestRegistry()
	defer r.Close()

	instances := r.Discover("ghost-service")
	if len(instances) != 0 {
		t.Errorf("expected empty list, got %d", len(instances))
	}
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	defer r.Close()

	inst := testInstance("u1", "user-service", 8081)
	r.Register(inst)
	inst.Version = "1.1.0"
	r.Register(inst)

	instances := r.Discover("user-service")
	if len(instances) != 1 {
		t.Fatalf("expected 1 instance after re-register, got %d", len(instances))
	}
	if instances[0].Version != "1.1.0" {
		t.Errorf("expected replaced record, got version %s", instances[0].Version)
	}
}

func TestRegistry_DeregisterRemovesFromBothIndices(t *testing.T) {
	r := newTestRegistry()
	defer r.Close()

	r.Register(testInstance("u1", "user-service", 8081))
	if err := r.Deregister("u1"); err != nil {
		t.Fatalf("deregister failed: %v", err)
	}

	if got := r.Discover("user-service"); len(got) != 0 {
		t.Errorf("expected no instances after deregister, got %d", len(got))
	}
	if _, ok := r.ListAll()["user-service"]; ok {
		t.Error("expected name entry removed when last instance leaves")
	}
}

func TestRegistry_DeregisterUnknownFails(t *testing.T) {
	r := newTestRegistry()
	defer r.Close()

	if err := r.Deregister("nope"); err != ErrUnknownInstance {
		t.Errorf("expected ErrUnknownInstance, got %v", err)
	}
}

func TestRegistry_UpdateHealth(t *testing.T) {
	r := newTestRegistry()
	defer r.Close()

	r.Register(testInstance("u1", "user-service", 8081))
	before := time.Now()

	if err := r.UpdateHealth("u1", StatusDegraded); err != nil {
		t.Fatalf("update health failed: %v", err)
	}

	instances := r.Discover("user-service")
	if instances[0].Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", instances[0].Status)
	}
	if instances[0].LastHeartbeat.Before(before) {
		t.Error("expected heartbeat refreshed")
	}

	if err := r.UpdateHealth("nope", StatusHealthy); err != ErrUnknownInstance {
		t.Errorf("expected ErrUnknownInstance, got %v", err)
	}
}

func TestRegistry_SnapshotsAreCopies(t *testing.T) {
	r := newTestRegistry()
	defer r.Close()

	inst := testInstance("u1", "user-service", 8081)
	inst.Metadata = map[string]string{"zone": "a"}
	r.Register(inst)

	snap := r.Discover("user-service")
	snap[0].Status = StatusStopped
	snap[0].Metadata["zone"] = "b"

	fresh := r.Discover("user-service")
	if fresh[0].Status != StatusHealthy {
		t.Error("mutating a snapshot leaked into the registry")
	}
	if fresh[0].Metadata["zone"] != "a" {
		t.Error("mutating snapshot metadata leaked into the registry")
	}
}

func TestRegistry_RecordCallUpdatesCounters(t *testing.T) {
	r := newTestRegistry()
	defer r.Close()

	r.Register(testInstance("u1", "user-service", 8081))
	r.RecordCall("u1", false, 100*time.Millisecond)
	r.RecordCall("u1", true, 300*time.Millisecond)

	inst := r.Discover("user-service")[0]
	if inst.RequestCount != 2 {
		t.Errorf("expected request count 2, got %d", inst.RequestCount)
	}
	if inst.ErrorCount != 1 {
		t.Errorf("expected error count 1, got %d", inst.ErrorCount)
	}
	if inst.AvgResponseTime != 200*time.Millisecond {
		t.Errorf("expected avg 200ms, got %s", inst.AvgResponseTime)
	}
}

func TestRegistry_SweeperEvictsExpiredInstances(t *testing.T) {
	r := New(Config{HeartbeatTTL: 30 * time.Millisecond, SweepInterval: 10 * time.Millisecond}, nil)
	defer r.Close()

	r.Register(testInstance("u1", "user-service", 8081))

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if len(r.Discover("user-service")) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("expected instance to be evicted after heartbeat TTL")
}

func TestRegistry_ConcurrentOperationsKeepIndicesConsistent(t *testing.T) {
	r := newTestRegistry()
	defer r.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("inst-%d", n)
			for j := 0; j < 50; j++ {
				r.Register(testInstance(id, "user-service", 8000+n))
				r.Discover("user-service")
				_ = r.UpdateHealth(id, StatusHealthy)
				r.ListAll()
				_ = r.Deregister(id)
			}
		}(i)
	}
	wg.Wait()

	// Every id registered by the loops was also deregistered.
	if got := r.Discover("user-service"); len(got) != 0 {
		t.Errorf("expected empty registry after churn, got %d", len(got))
	}
}
