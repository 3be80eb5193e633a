// Command meshgate runs the mesh control plane: the service registry and the
// API gateway that proxies authenticated traffic into the mesh.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meshforge/meshkit/config"
	"github.com/meshforge/meshkit/gateway"
	"github.com/meshforge/meshkit/logger"
	"github.com/meshforge/meshkit/mesh"
	"github.com/meshforge/meshkit/registry"
	"github.com/meshforge/meshkit/telemetry"
	"github.com/meshforge/meshkit/version"
)

// Config is the meshgate configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Registry  registry.Config  `yaml:"registry" mapstructure:"registry"`
	Mesh      mesh.Config      `yaml:"mesh" mapstructure:"mesh"`
	Gateway   gateway.Config   `yaml:"gateway" mapstructure:"gateway"`
	Telemetry telemetry.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// ApplyDefaults fills in zero-value fields across all sections.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "meshgate"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Registry.ApplyDefaults()
	c.Mesh.ApplyDefaults()
	c.Gateway.ApplyDefaults()
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.Name
	}
	c.Telemetry.ApplyDefaults()
}

// Validate validates all sections.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Mesh.Validate(); err != nil {
		return err
	}
	if err := c.Gateway.Validate(); err != nil {
		return err
	}
	return c.Telemetry.Validate()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "meshgate:", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := config.LoadConfig("meshgate", &cfg); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger.Init(cfg.Logging)
	log := logger.New(&cfg.Logging, cfg.Name)

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	reg := registry.New(cfg.Registry, log)
	defer reg.Close()

	if cfg.Telemetry.Enabled {
		cfg.Mesh.Meter = telemetry.Meter(cfg.Name)
		cfg.Mesh.Tracer = telemetry.Tracer(cfg.Name)
	}
	meshClient, err := mesh.New(cfg.Mesh, reg, log)
	if err != nil {
		return fmt.Errorf("creating mesh client: %w", err)
	}

	gw, err := gateway.New(cfg.Gateway, reg, meshClient, log)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	if err := gw.Start(ctx); err != nil {
		return err
	}

	log.Info("meshgate ready", logger.Fields(
		"addr", gw.Addr(),
		"environment", cfg.Environment,
		"version", version.GetShortVersion(),
	))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received shutdown signal", logger.Fields("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := gw.Stop(shutdownCtx); err != nil {
		log.Error("gateway shutdown error", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Error("telemetry shutdown error", logger.Fields(logger.FieldError, err.Error()))
	}

	log.Info("meshgate stopped")
	return nil
}
