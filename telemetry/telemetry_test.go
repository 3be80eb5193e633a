package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{ServiceName: "meshgate"}
	cfg.ApplyDefaults()

	if cfg.ServiceVersion != "1.0.0" {
		t.Errorf("ServiceVersion = %q, want 1.0.0", cfg.ServiceVersion)
	}
	if cfg.Endpoint != "localhost:4318" {
		t.Errorf("Endpoint = %q, want localhost:4318", cfg.Endpoint)
	}
	if !cfg.Insecure {
		t.Error("default local endpoint should be insecure")
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("SampleRate = %v, want 1.0", cfg.SampleRate)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("Interval = %v, want 15s", cfg.Interval)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for enabled telemetry without service name")
	}

	cfg = Config{Enabled: true, ServiceName: "meshgate", SampleRate: 2}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for sample rate above 1")
	}

	cfg = Config{Enabled: true, ServiceName: "meshgate"}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown error: %v", err)
	}
}

func TestMeterAndTracerAreUsableWithoutInit(t *testing.T) {
	// The global no-op providers must hand out working instruments.
	meter := Meter("test")
	counter, err := meter.Int64Counter("test.counter")
	if err != nil {
		t.Fatalf("Int64Counter: %v", err)
	}
	counter.Add(context.Background(), 1)

	tracer := Tracer("test")
	_, span := tracer.Start(context.Background(), "test.span")
	span.End()
}
