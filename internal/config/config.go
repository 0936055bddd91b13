// Package config handles loading and validating service and pool
// configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig holds settings for the demo service wrapping the pool
// library: where its health and metrics HTTP servers listen, plus a
// health-check interval that Load defaults but nothing else reads (the
// demo runs its checks at startup and on each health request).
type ServiceConfig struct {
	InstanceID          string        `yaml:"instance_id"`
	HealthCheckPort     int           `yaml:"health_check_port"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
	MetricsPort         int           `yaml:"metrics_port"`
}

// PoolConfig describes one named pool: the SQL Server instance it
// manages sessions against, and the pool sizing/timeout knobs that
// become a pool.Config plus adapter dial options.
type PoolConfig struct {
	Name              string        `yaml:"name"`
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	Database          string        `yaml:"database"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MinSize           int           `yaml:"min_size"`
	MaxSize           int           `yaml:"max_size"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	AcquireTimeout    time.Duration `yaml:"acquire_timeout"`
	MaxIdleAge        time.Duration `yaml:"max_idle_age"`
	ReapInterval      time.Duration `yaml:"reap_interval"`
}

// Config is the root configuration structure.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Pools   []PoolConfig  `yaml:"pools"`
}

// serviceFileConfig mirrors the YAML structure of the service config file.
type serviceFileConfig struct {
	Service ServiceConfig `yaml:"service"`
}

// poolsFileConfig mirrors the YAML structure of the pools config file.
type poolsFileConfig struct {
	Pools []PoolConfig `yaml:"pools"`
}

// Load reads and parses the service and pools configuration files.
func Load(serviceConfigPath, poolsConfigPath string) (*Config, error) {
	serviceData, err := os.ReadFile(serviceConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading service config %s: %w", serviceConfigPath, err)
	}

	var serviceFile serviceFileConfig
	if err := yaml.Unmarshal(serviceData, &serviceFile); err != nil {
		return nil, fmt.Errorf("parsing service config %s: %w", serviceConfigPath, err)
	}

	poolsData, err := os.ReadFile(poolsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading pools config %s: %w", poolsConfigPath, err)
	}

	var poolsFile poolsFileConfig
	if err := yaml.Unmarshal(poolsData, &poolsFile); err != nil {
		return nil, fmt.Errorf("parsing pools config %s: %w", poolsConfigPath, err)
	}

	cfg := &Config{
		Service: serviceFile.Service,
		Pools:   poolsFile.Pools,
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	cfg.applyDefaults()

	return cfg, nil
}

// validate checks mandatory fields.
func (c *Config) validate() error {
	if len(c.Pools) == 0 {
		return fmt.Errorf("at least one pool must be configured")
	}
	seen := make(map[string]bool, len(c.Pools))
	for i, p := range c.Pools {
		if p.Name == "" {
			return fmt.Errorf("pools[%d].name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("pools[%d].name %q is duplicated", i, p.Name)
		}
		seen[p.Name] = true
		if p.Host == "" {
			return fmt.Errorf("pool %s: host is required", p.Name)
		}
		if p.Port == 0 {
			return fmt.Errorf("pool %s: port is required", p.Name)
		}
		if p.MaxSize == 0 {
			return fmt.Errorf("pool %s: max_size is required", p.Name)
		}
		if p.MaxSize < p.MinSize {
			return fmt.Errorf("pool %s: max_size (%d) must be >= min_size (%d)", p.Name, p.MaxSize, p.MinSize)
		}
	}
	return nil
}

// applyDefaults fills in reasonable defaults for unset optional fields.
func (c *Config) applyDefaults() {
	if c.Service.HealthCheckInterval == 0 {
		c.Service.HealthCheckInterval = 15 * time.Second
	}
	if c.Service.HealthCheckPort == 0 {
		c.Service.HealthCheckPort = 8080
	}
	if c.Service.MetricsPort == 0 {
		c.Service.MetricsPort = 9090
	}
	if c.Service.InstanceID == "" {
		hostname, _ := os.Hostname()
		c.Service.InstanceID = hostname
	}

	for i := range c.Pools {
		if c.Pools[i].ConnectTimeout == 0 {
			c.Pools[i].ConnectTimeout = 30 * time.Second
		}
		if c.Pools[i].AcquireTimeout == 0 {
			c.Pools[i].AcquireTimeout = 5 * time.Second
		}
	}
}

// PoolByName returns the pool configuration for a given pool name.
func (c *Config) PoolByName(name string) (*PoolConfig, bool) {
	for i := range c.Pools {
		if c.Pools[i].Name == name {
			return &c.Pools[i], true
		}
	}
	return nil, false
}
