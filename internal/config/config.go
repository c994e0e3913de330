// Package config loads the small YAML configuration file the demo binary
// uses to wire a Fount, mirroring the production pattern of a flat struct
// loaded once at startup with yaml.Unmarshal.
package config

import (
	"fmt"
	"os"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// Config is the demo binary's wiring configuration. The reservoir library
// itself takes no config file — only constructor options.
type Config struct {
	SlabSize int    `yaml:"slab_size"`
	Depth    int    `yaml:"depth"`
	HTTPAddr string `yaml:"http_address"`

	SpawnRate struct {
		Enabled bool    `yaml:"enabled"`
		PerSec  float64 `yaml:"per_second"`
		Burst   int     `yaml:"burst"`
	} `yaml:"spawn_rate"`

	StatusMirror struct {
		Enabled  bool   `yaml:"enabled"`
		RedisDSN string `yaml:"redis_address"`
		RedisDB  int    `yaml:"redis_db"`
		Key      string `yaml:"key"`
	} `yaml:"status_mirror"`
}

// RateLimit returns the configured spawn-rate ceiling, or (0, 0, false) if
// none was enabled.
func (c *Config) RateLimit() (rate.Limit, int, bool) {
	if !c.SpawnRate.Enabled {
		return 0, 0, false
	}
	return rate.Limit(c.SpawnRate.PerSec), c.SpawnRate.Burst, true
}

// Load reads and parses the YAML file at path, applying defaults for
// anything the file omits.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := &Config{
		SlabSize: 10,
		Depth:    5,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.SlabSize < 1 {
		return nil, fmt.Errorf("config: slab_size must be >= 1, got %d", cfg.SlabSize)
	}
	if cfg.Depth < 2 {
		return nil, fmt.Errorf("config: depth must be >= 2, got %d", cfg.Depth)
	}
	return cfg, nil
}
