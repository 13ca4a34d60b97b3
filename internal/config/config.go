// Package config holds engine configuration.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config holds all geonerd configuration.
type Config struct {
	// Solver settings
	Solver SolverConfig `yaml:"solver"`

	// Automatically run the solver after every assertion. Disable for bulk
	// loading, then trigger solving explicitly.
	AutoSolve bool `yaml:"auto_solve"`

	// Allow interpreted theorem scripts.
	EnableScripts bool `yaml:"enable_scripts"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SolverConfig configures the equation solver and cascade bounds.
type SolverConfig struct {
	// MaxBranches bounds the number of solution branches explored before
	// the solver defers.
	MaxBranches int `yaml:"max_branches"`

	// MaxCascadePasses bounds merge/substitution cascades per mutating call.
	MaxCascadePasses int `yaml:"max_cascade_passes"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Solver: SolverConfig{
			MaxBranches:      16,
			MaxCascadePasses: 64,
		},
		AutoSolve:     true,
		EnableScripts: false,
		Logging: LoggingConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// FromYAML parses configuration from YAML, applying defaults for anything
// not specified.
func FromYAML(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToYAML serializes the configuration.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Solver.MaxBranches < 1 {
		return fmt.Errorf("solver.max_branches must be >= 1, got %d", c.Solver.MaxBranches)
	}
	if c.Solver.MaxCascadePasses < 1 {
		return fmt.Errorf("solver.max_cascade_passes must be >= 1, got %d", c.Solver.MaxCascadePasses)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}
	return nil
}
