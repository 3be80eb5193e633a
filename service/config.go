package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meshforge/meshkit/registry"
)

// Config configures a service instance.
type Config struct {
	// Name is the service name other services discover it by.
	Name string `yaml:"name" mapstructure:"name"`

	// ID is the unique instance id. Generated when empty.
	ID string `yaml:"id" mapstructure:"id"`

	// Category classifies the service. Defaults to business_service.
	Category registry.Category `yaml:"category" mapstructure:"category"`

	// Version is the reported instance version.
	Version string `yaml:"version" mapstructure:"version"`

	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`

	// Dependencies are service names this instance needs to be healthy.
	Dependencies []string `yaml:"dependencies" mapstructure:"dependencies"`

	// Endpoints are advertised in the instance record.
	Endpoints []string `yaml:"endpoints" mapstructure:"endpoints"`

	// HeartbeatInterval is how often the instance refreshes its registration.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.ID == "" {
		c.ID = fmt.Sprintf("%s-%s", c.Name, uuid.New().String()[:8])
	}
	if c.Category == "" {
		c.Category = registry.CategoryBusiness
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("service: name is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("service: port must be between 0 and 65535 (got: %d)", c.Port)
	}
	return nil
}
