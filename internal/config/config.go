// Package config loads node configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Modern-Society-Labs/lcore-node/pkg/deviceauth"
)

// Config holds lcore-node configuration.
type Config struct {
	// CoordinatorURL is the base URL of the external coordinator
	// (e.g., "http://127.0.0.1:5004").
	CoordinatorURL string `yaml:"coordinator_url"`

	// DBPath is the SQLite database path.
	DBPath string `yaml:"db_path"`

	// HealthAddr is the liveness listener address. Empty disables it.
	HealthAddr string `yaml:"health_addr"`

	// AuthPolicy selects the signature policy: "enforced" or
	// "allow-unregistered" (the historical weak default).
	AuthPolicy string `yaml:"auth_policy"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns configuration with defaults.
func Default() *Config {
	return &Config{
		CoordinatorURL: "http://127.0.0.1:5004",
		DBPath:         "/data/iot.db",
		HealthAddr:     ":8080",
		AuthPolicy:     deviceauth.PolicyAllowUnauthenticatedIfUnregistered.String(),
		LogLevel:       "info",
	}
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides. A missing file is not an error; env-only
// deployments are supported.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv applies LCORE_* environment overrides.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("LCORE_COORDINATOR_URL"); v != "" {
		c.CoordinatorURL = v
	}
	if v := os.Getenv("LCORE_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("LCORE_HEALTH_ADDR"); v != "" {
		c.HealthAddr = v
	}
	if v := os.Getenv("LCORE_AUTH_POLICY"); v != "" {
		c.AuthPolicy = v
	}
	if v := os.Getenv("LCORE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.CoordinatorURL == "" {
		return fmt.Errorf("coordinator_url is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if _, ok := deviceauth.ParsePolicy(c.AuthPolicy); !ok {
		return fmt.Errorf("unknown auth_policy %q (want \"enforced\" or \"allow-unregistered\")", c.AuthPolicy)
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Policy returns the parsed signature policy.
func (c *Config) Policy() deviceauth.Policy {
	p, _ := deviceauth.ParsePolicy(c.AuthPolicy)
	return p
}
