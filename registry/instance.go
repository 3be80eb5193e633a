package registry

import (
	"fmt"
	"time"
)

// Status represents the lifecycle status of a service instance.
type Status string

const (
	StatusStarting  Status = "starting"
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusStopped   Status = "stopped"
)

// Category classifies a service instance by role.
type Category string

const (
	CategoryGateway  Category = "api_gateway"
	CategoryBusiness Category = "business_service"
	CategoryData     Category = "data_service"
	CategoryUtility  Category = "utility_service"
	CategoryExternal Category = "external_service"
)

// Instance is one running copy of a named service.
type Instance struct {
	ID           string            `json:"service_id" validate:"required"`
	Name         string            `json:"service_name" validate:"required"`
	Category     Category          `json:"service_category"`
	Host         string            `json:"host" validate:"required"`
	Port         int               `json:"port" validate:"required,min=1,max=65535"`
	Version      string            `json:"version"`
	Status       Status            `json:"status"`
	Dependencies []string          `json:"dependencies,omitempty"`
	Endpoints    []string          `json:"endpoints,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`

	LastHeartbeat   time.Time     `json:"last_heartbeat"`
	RequestCount    int64         `json:"request_count"`
	ErrorCount      int64         `json:"error_count"`
	AvgResponseTime time.Duration `json:"response_time_avg"`
}

// Addr returns the host:port network address of the instance.
func (i *Instance) Addr() string {
	return fmt.Sprintf("%s:%d", i.Host, i.Port)
}

// ErrorRate returns the fraction of calls that errored.
func (i *Instance) ErrorRate() float64 {
	total := i.RequestCount
	if total < 1 {
		total = 1
	}
	return float64(i.ErrorCount) / float64(total)
}

// clone returns a deep copy so callers never share mutable state with the registry.
func (i *Instance) clone() Instance {
	out := *i
	if i.Dependencies != nil {
		out.Dependencies = append([]string(nil), i.Dependencies...)
	}
	if i.Endpoints != nil {
		out.Endpoints = append([]string(nil), i.Endpoints...)
	}
	if i.Metadata != nil {
		out.Metadata = make(map[string]string, len(i.Metadata))
		for k, v := range i.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
