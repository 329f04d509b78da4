// Package config loads and saves planner configuration from YAML.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/planwork/pkg/dispatch"
	"github.com/vanderheijden86/planwork/pkg/history"
	"github.com/vanderheijden86/planwork/pkg/model"
)

// PlannerConfig holds the planning knobs.
type PlannerConfig struct {
	AvailableHours   int           `yaml:"available_hours"`
	MaxParallel      int           `yaml:"max_parallel"`
	HorizonWeeks     int           `yaml:"horizon_weeks"`
	SolverDeadlineMS int           `yaml:"solver_deadline_ms"`
	Seed             int64         `yaml:"seed"`
	Weights          model.Weights `yaml:"weights"`
}

// HistoryConfig locates the completion log.
type HistoryConfig struct {
	LogPath    string `yaml:"log_path"`
	MinSamples int    `yaml:"min_samples"`
}

// Config is the whole planwork configuration. Unknown YAML fields are
// ignored; zero-value fields are backfilled from DefaultConfig.
type Config struct {
	Planner PlannerConfig            `yaml:"planner"`
	History HistoryConfig            `yaml:"history"`
	Solvers []model.SolverCapability `yaml:"solvers,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Planner: PlannerConfig{
			AvailableHours:   model.DefaultAvailableHours,
			MaxParallel:      model.DefaultMaxParallel,
			HorizonWeeks:     4,
			SolverDeadlineMS: 10_000,
			Seed:             1,
			Weights:          model.DefaultWeights(),
		},
		History: HistoryConfig{
			LogPath:    "completions.jsonl",
			MinSamples: history.DefaultMinSamples,
		},
	}
}

// Load reads the config at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader parses YAML config from r.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.backfill()
	return cfg, nil
}

// Save writes the config to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// backfill replaces zero-value fields with defaults.
func (c *Config) backfill() {
	def := DefaultConfig()
	if c.Planner.AvailableHours <= 0 {
		c.Planner.AvailableHours = def.Planner.AvailableHours
	}
	if c.Planner.MaxParallel <= 0 {
		c.Planner.MaxParallel = def.Planner.MaxParallel
	}
	if c.Planner.HorizonWeeks <= 0 {
		c.Planner.HorizonWeeks = def.Planner.HorizonWeeks
	}
	if c.Planner.SolverDeadlineMS <= 0 {
		c.Planner.SolverDeadlineMS = def.Planner.SolverDeadlineMS
	}
	if c.Planner.Seed == 0 {
		c.Planner.Seed = def.Planner.Seed
	}
	if c.Planner.Weights == (model.Weights{}) {
		c.Planner.Weights = def.Planner.Weights
	}
	if c.History.LogPath == "" {
		c.History.LogPath = def.History.LogPath
	}
	if c.History.MinSamples <= 0 {
		c.History.MinSamples = def.History.MinSamples
	}
}

// SolverDeadline returns the solver budget as a duration.
func (c *Config) SolverDeadline() time.Duration {
	return time.Duration(c.Planner.SolverDeadlineMS) * time.Millisecond
}

// Registry materializes the configured solvers; an empty list falls back to
// the stock registry.
func (c *Config) Registry() (*dispatch.Registry, error) {
	if len(c.Solvers) == 0 {
		return dispatch.DefaultRegistry(), nil
	}
	reg, err := dispatch.NewRegistry(c.Solvers)
	if err != nil {
		return nil, fmt.Errorf("config solvers: %w", err)
	}
	return reg, nil
}
