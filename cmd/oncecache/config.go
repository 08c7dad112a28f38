package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigEnv overrides the --config flag when set.
const ConfigEnv = "ONCECACHE_CONFIG"

type RedisConfig struct {
	Addr        string `yaml:"addr"`
	ReplicaAddr string `yaml:"replica_addr"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
}

type Config struct {
	Redis        RedisConfig `yaml:"redis"`
	Namespace    string      `yaml:"namespace"`
	LeaseTTL     string      `yaml:"lease_ttl"`
	PollInterval string      `yaml:"poll_interval"`
	MaxLockWait  string      `yaml:"max_lock_wait"`
	Locker       string      `yaml:"locker"` // "store" or "redsync"
	LogLevel     string      `yaml:"log_level"`
}

// Load reads, validates and fills defaults for the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "oncecache"
	}
	if cfg.LeaseTTL == "" {
		cfg.LeaseTTL = "30s"
	}
	if cfg.PollInterval == "" {
		cfg.PollInterval = "25ms"
	}
	if cfg.MaxLockWait == "" {
		cfg.MaxLockWait = "30s"
	}
	if cfg.Locker == "" {
		cfg.Locker = "store"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func (c *Config) Validate() error {
	var errs []error
	for name, v := range map[string]string{
		"lease_ttl":     c.LeaseTTL,
		"poll_interval": c.PollInterval,
		"max_lock_wait": c.MaxLockWait,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive, got %s", name, v))
		}
	}
	switch c.Locker {
	case "store", "redsync":
	default:
		errs = append(errs, fmt.Errorf("locker: unknown %q (want store or redsync)", c.Locker))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown %q", c.LogLevel))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, errors.New("redis.db: must not be negative"))
	}
	return errors.Join(errs...)
}

// durations must only be called on a validated Config.
func (c *Config) durations() (leaseTTL, poll, maxWait time.Duration) {
	leaseTTL, _ = time.ParseDuration(c.LeaseTTL)
	poll, _ = time.ParseDuration(c.PollInterval)
	maxWait, _ = time.ParseDuration(c.MaxLockWait)
	return leaseTTL, poll, maxWait
}
