// Package config loads and persists planweaver configuration from
// .planweaver/config.yaml. Missing files yield defaults; environment
// variables override a small set of deployment-sensitive fields.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the workspace-relative config file location.
const ConfigPath = ".planweaver/config.yaml"

// Config holds all planweaver configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Validation ValidationConfig `yaml:"validation"`
	Simulation SimulationConfig `yaml:"simulation"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Router     RouterConfig     `yaml:"router"`
	Store      StoreConfig      `yaml:"store"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ValidationConfig configures the graph validator.
type ValidationConfig struct {
	// RequireActions promotes the empty-action-set warning to an error.
	RequireActions bool `yaml:"require_actions"`
}

// SimulationConfig configures the simulator.
type SimulationConfig struct {
	Seed                   int64   `yaml:"seed"`
	Mode                   string  `yaml:"mode"` // fast, standard, thorough
	BaseFailureProbability float64 `yaml:"base_failure_probability"`
}

// EvaluationConfig configures verdict thresholds.
type EvaluationConfig struct {
	PassThreshold        float64 `yaml:"pass_threshold"`
	ConditionalThreshold float64 `yaml:"conditional_threshold"`
}

// RouterConfig configures candidate routing.
type RouterConfig struct {
	MaxCandidates int     `yaml:"max_candidates"`
	MinScore      float64 `yaml:"min_score"`
}

// StoreConfig configures the audit store.
type StoreConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures debug logging. Mirrored by internal/logging,
// which re-reads the file itself to avoid a circular import.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "planweaver",
		Version: "0.3.0",

		Validation: ValidationConfig{
			RequireActions: false,
		},
		Simulation: SimulationConfig{
			Seed:                   42,
			Mode:                   "standard",
			BaseFailureProbability: 0.1,
		},
		Evaluation: EvaluationConfig{
			PassThreshold:        0.7,
			ConditionalThreshold: 0.5,
		},
		Router: RouterConfig{
			MaxCandidates: 5,
			MinScore:      0.5,
		},
		Store: StoreConfig{
			Enabled:      false,
			DatabasePath: "data/planweaver.db",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads the config at path, layering file values over defaults and
// environment overrides over both. A missing file returns defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadWorkspace loads the config from its standard workspace location.
func LoadWorkspace(workspace string) (*Config, error) {
	return Load(filepath.Join(workspace, ConfigPath))
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides layers PLANWEAVER_* environment variables over the
// loaded values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PLANWEAVER_DB_PATH"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("PLANWEAVER_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Simulation.Seed = seed
		}
	}
	if v := os.Getenv("PLANWEAVER_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = debug
		}
	}
}
