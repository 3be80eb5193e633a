// Package config loads configuration for meshkit services.
//
// Configuration is layered: a YAML config file is the base, a .env file
// supplies environment variables, and process environment variables override
// both. Services embed ServiceConfig in their own config structs:
//
//	type GatewayConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Mesh mesh.Config `yaml:"mesh" mapstructure:"mesh"`
//	}
//	var cfg GatewayConfig
//	err := config.LoadConfig("meshgate", &cfg)
package config
