package balance

import (
	"testing"

	"github.com/meshforge/meshkit/registry"
)

func inst(id string, status registry.Status) registry.Instance {
	return registry.Instance{
		ID:     id,
		Name:   "user-service",
		Host:   "127.0.0.1",
		Port:   8081,
		Status: status,
	}
}

func TestNew_SelectsStrategy(t *testing.T) {
	tests := []struct {
		strategy Strategy
		want     Strategy
	}{
		{StrategyRoundRobin, StrategyRoundRobin},
		{StrategyLeastConnections, StrategyLeastConnections},
		{StrategyWeightedRandom, StrategyWeightedRandom},
		{StrategyFirst, StrategyFirst},
		{"unknown", StrategyFirst},
	}
	for _, tt := range tests {
		if got := New(tt.strategy).Name(); got != tt.want {
			t.Errorf("New(%s).Name() = %s, want %s", tt.strategy, got, tt.want)
		}
	}
}

func TestFilter_PrefersHealthyInstances(t *testing.T) {
	instances := []registry.Instance{
		inst("a", registry.StatusDegraded),
		inst("b", registry.StatusHealthy),
		inst("c", registry.StatusUnhealthy),
	}

	picked, err := (&First{}).Pick("user-service", instances)
	if err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	if picked.ID != "b" {
		t.Errorf("expected healthy instance b, got %s", picked.ID)
	}
}

func TestFilter_FallsBackToNonStopped(t *testing.T) {
	instances := []registry.Instance{
		inst("a", registry.StatusStopped),
		inst("b", registry.StatusDegraded),
	}

	picked, err := (&First{}).Pick("user-service", instances)
	if err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	if picked.ID != "b" {
		t.Errorf("expected degraded fallback b, got %s", picked.ID)
	}
}

func TestFilter_AllStoppedFails(t *testing.T) {
	instances := []registry.Instance{
		inst("a", registry.StatusStopped),
		inst("b", registry.StatusStopped),
	}

	_, err := (&First{}).Pick("user-service", instances)
	if err != ErrNoInstanceAvailable {
		t.Errorf("expected ErrNoInstanceAvailable, got %v", err)
	}
}

func TestRoundRobin_VisitsEachInstanceOncePerCycle(t *testing.T) {
	instances := []registry.Instance{
		inst("a", registry.StatusHealthy),
		inst("b", registry.StatusHealthy),
		inst("c", registry.StatusHealthy),
	}
	b := NewRoundRobin()

	for cycle := 0; cycle < 3; cycle++ {
		seen := make(map[string]int)
		for i := 0; i < len(instances); i++ {
			picked, err := b.Pick("user-service", instances)
			if err != nil {
				t.Fatalf("pick failed: %v", err)
			}
			seen[picked.ID]++
		}
		for _, id := range []string{"a", "b", "c"} {
			if seen[id] != 1 {
				t.Errorf("cycle %d: instance %s picked %d times, want 1", cycle, id, seen[id])
			}
		}
	}
}

func TestRoundRobin_CountersArePerService(t *testing.T) {
	instances := []registry.Instance{
		inst("a", registry.StatusHealthy),
		inst("b", registry.StatusHealthy),
	}
	b := NewRoundRobin()

	first, _ := b.Pick("user-service", instances)
	other, _ := b.Pick("data-service", instances)

	if first.ID != "a" || other.ID != "a" {
		t.Error("expected each service to start its own rotation at the first instance")
	}
}

func TestLeastConnections_PicksLowestRequestCount(t *testing.T) {
	a := inst("a", registry.StatusHealthy)
	a.RequestCount = 10
	b := inst("b", registry.StatusHealthy)
	b.RequestCount = 3
	c := inst("c", registry.StatusHealthy)
	c.RequestCount = 7

	picked, err := (&LeastConnections{}).Pick("user-service", []registry.Instance{a, b, c})
	if err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	if picked.ID != "b" {
		t.Errorf("expected b with lowest count, got %s", picked.ID)
	}
}

func TestLeastConnections_TiesBreakByListOrder(t *testing.T) {
	a := inst("a", registry.StatusHealthy)
	a.RequestCount = 5
	b := inst("b", registry.StatusHealthy)
	b.RequestCount = 5

	picked, _ := (&LeastConnections{}).Pick("user-service", []registry.Instance{a, b})
	if picked.ID != "a" {
		t.Errorf("expected first-listed a on tie, got %s", picked.ID)
	}
}

func TestWeightedRandom_CleanInstanceNeverZeroProbability(t *testing.T) {
	// clean: errorRate 0 -> weight 10; dirty: errorRate 1 -> weight ~0.909.
	clean := inst("clean", registry.StatusHealthy)
	clean.RequestCount = 100
	dirty := inst("dirty", registry.StatusHealthy)
	dirty.RequestCount = 100
	dirty.ErrorCount = 100

	counts := make(map[string]int)
	b := &WeightedRandom{}
	for i := 0; i < 2000; i++ {
		picked, err := b.Pick("user-service", []registry.Instance{clean, dirty})
		if err != nil {
			t.Fatalf("pick failed: %v", err)
		}
		counts[picked.ID]++
	}

	if counts["clean"] == 0 {
		t.Error("clean instance was never selected")
	}
	if counts["clean"] <= counts["dirty"] {
		t.Errorf("expected clean selected more often: clean=%d dirty=%d",
			counts["clean"], counts["dirty"])
	}
}

func TestWeightedRandom_DeterministicDraw(t *testing.T) {
	clean := inst("clean", registry.StatusHealthy)
	clean.RequestCount = 10
	dirty := inst("dirty", registry.StatusHealthy)
	dirty.RequestCount = 10
	dirty.ErrorCount = 10

	// Weights: clean 10, dirty 1/1.1. A draw just past the clean share must
	// land on dirty.
	b := &WeightedRandom{randFloat: func() float64 { return 0.95 }}
	picked, err := b.Pick("user-service", []registry.Instance{clean, dirty})
	if err != nil {
		t.Fatalf("pick failed: %v", err)
	}
	if picked.ID != "dirty" {
		t.Errorf("expected draw in dirty's share, got %s", picked.ID)
	}
}
