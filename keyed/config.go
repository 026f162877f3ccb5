package keyed

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mkessel/ratemeter/pkg/ratemeter"
)

// ErrInvalidConfig is returned for any malformed policy configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds rate limiting policies: one default plus per-route
// overrides. It is the file format consumed by cmd/demo and anything else
// that wires limiters from YAML.
type Config struct {
	// Defaults applies to every route without a specific policy.
	Defaults PolicyConfig `yaml:"defaults"`

	// Policies maps route paths to their overriding policies,
	// e.g. "/api/login" -> a much stricter limit.
	Policies map[string]PolicyConfig `yaml:"policies,omitempty"`

	// CleanupAge is how long a bucket may sit idle before eviction.
	// A duration string such as "1h"; empty means the 1h default.
	CleanupAge string `yaml:"cleanup_age,omitempty"`
}

// PolicyConfig defines one rate limit policy.
type PolicyConfig struct {
	// Capacity is the maximum burst size in cells.
	Capacity int64 `yaml:"capacity"`

	// TimeUnit is the window over which Capacity cells are allowed, as a
	// duration string ("1s", "500ms", "1m"). Empty means one second.
	TimeUnit string `yaml:"time_unit,omitempty"`

	// Algorithm is "gcra" (default) or "leakybucket".
	Algorithm string `yaml:"algorithm,omitempty"`

	// Enabled turns rate limiting off for a route when false.
	Enabled bool `yaml:"enabled"`
}

// NewConfig returns a Config with sensible defaults: 100 cells per second,
// GCRA, hourly cleanup age.
func NewConfig() *Config {
	return &Config{
		Defaults: PolicyConfig{
			Capacity:  100,
			TimeUnit:  "1s",
			Algorithm: string(AlgorithmGCRA),
			Enabled:   true,
		},
		Policies:   make(map[string]PolicyConfig),
		CleanupAge: "1h",
	}
}

// LoadConfigFile reads and validates a YAML policy file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrInvalidConfig, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidConfig, err)
	}

	if cfg.CleanupAge == "" {
		cfg.CleanupAge = "1h"
	}
	if cfg.Policies == nil {
		cfg.Policies = make(map[string]PolicyConfig)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the defaults and every route policy eagerly, so that a
// bad file fails at startup rather than on the first request.
func (c *Config) Validate() error {
	if err := c.Defaults.Validate(); err != nil {
		return fmt.Errorf("%w: invalid defaults: %v", ErrInvalidConfig, err)
	}
	for route, p := range c.Policies {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: invalid policy for route %s: %v", ErrInvalidConfig, route, err)
		}
	}
	if c.CleanupAge != "" {
		if _, err := time.ParseDuration(c.CleanupAge); err != nil {
			return fmt.Errorf("%w: invalid cleanup_age: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// PolicyFor returns the policy for a route, falling back to the defaults.
func (c *Config) PolicyFor(route string) PolicyConfig {
	if p, ok := c.Policies[route]; ok {
		return p
	}
	return c.Defaults
}

// CleanupAgeDuration returns the parsed cleanup age.
func (c *Config) CleanupAgeDuration() time.Duration {
	d, err := time.ParseDuration(c.CleanupAge)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// Validate checks a single policy.
func (p PolicyConfig) Validate() error {
	cfg, _, err := p.rateConfig()
	if err != nil {
		return err
	}
	return cfg.Validate()
}

// Limiter builds the keyed limiter this policy describes.
func (p PolicyConfig) Limiter() (*Limiter, error) {
	cfg, alg, err := p.rateConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg, WithAlgorithm(alg))
}

func (p PolicyConfig) rateConfig() (ratemeter.Config, Algorithm, error) {
	unit := time.Second
	if p.TimeUnit != "" {
		var err error
		unit, err = time.ParseDuration(p.TimeUnit)
		if err != nil {
			return ratemeter.Config{}, "", fmt.Errorf("invalid time_unit %q: %v", p.TimeUnit, err)
		}
	}
	alg := AlgorithmGCRA
	switch p.Algorithm {
	case "", string(AlgorithmGCRA):
	case string(AlgorithmLeakyBucket):
		alg = AlgorithmLeakyBucket
	default:
		return ratemeter.Config{}, "", fmt.Errorf("unknown algorithm %q", p.Algorithm)
	}
	return ratemeter.Config{Capacity: p.Capacity, TimeUnit: unit}, alg, nil
}
