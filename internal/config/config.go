// Package config loads optimization run settings from YAML files for the
// CLI. The server API takes configuration as JSON instead; this package is
// only the file-based entry point.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/gafuncmin/internal/engine"
	"github.com/cwbudde/gafuncmin/internal/objective"
)

// Run holds the YAML representation of one optimization run.
type Run struct {
	Function       string  `yaml:"function"`
	PopulationSize int     `yaml:"population_size"`
	Generations    int     `yaml:"generations"`
	MutationRate   float64 `yaml:"mutation_rate"`
	CrossoverRate  float64 `yaml:"crossover_rate"`
	TournamentSize int     `yaml:"tournament_size"`
	Seed           int64   `yaml:"seed"`

	// Bounds override the selected function's default search domain when
	// present.
	Bounds *Bounds `yaml:"bounds"`

	// EarlyStop enables stagnation-based early stopping.
	EarlyStop EarlyStop `yaml:"early_stop"`
}

// Bounds is the YAML form of the search interval.
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// EarlyStop configures the convergence tracker.
type EarlyStop struct {
	Enabled   bool    `yaml:"enabled"`
	Patience  int     `yaml:"patience"`
	Threshold float64 `yaml:"threshold"`
}

// Default returns the YAML-level defaults, mirroring engine.DefaultConfig.
func Default() Run {
	cfg := engine.DefaultConfig()
	return Run{
		Function:       cfg.FunctionType,
		PopulationSize: cfg.PopulationSize,
		Generations:    cfg.Generations,
		MutationRate:   cfg.MutationRate,
		CrossoverRate:  cfg.CrossoverRate,
		TournamentSize: cfg.TournamentSize,
		EarlyStop: EarlyStop{
			Patience:  10,
			Threshold: 0.001,
		},
	}
}

// Load reads a run configuration from a YAML file. Fields absent from the
// file keep their defaults.
func Load(path string) (Run, error) {
	run := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return run, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &run); err != nil {
		return run, fmt.Errorf("failed to parse config file: %w", err)
	}

	return run, nil
}

// EngineConfig resolves the run settings to a validated engine
// configuration. Bounds default to the selected function's registry entry
// when not set explicitly.
func (r Run) EngineConfig() (engine.Config, error) {
	fn, err := objective.Lookup(r.Function)
	if err != nil {
		return engine.Config{}, err
	}

	bounds := fn.Bounds
	if r.Bounds != nil {
		bounds = objective.Bounds{Min: r.Bounds.Min, Max: r.Bounds.Max}
	}

	cfg := engine.Config{
		PopulationSize: r.PopulationSize,
		Generations:    r.Generations,
		MutationRate:   r.MutationRate,
		CrossoverRate:  r.CrossoverRate,
		TournamentSize: r.TournamentSize,
		Bounds:         bounds,
		FunctionType:   r.Function,
		Seed:           r.Seed,
	}

	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}
	return cfg, nil
}

// ConvergenceConfig resolves the early-stop settings.
func (r Run) ConvergenceConfig() engine.ConvergenceConfig {
	if !r.EarlyStop.Enabled {
		return engine.DisabledConvergenceConfig()
	}
	return engine.ConvergenceConfig{
		Enabled:   true,
		Patience:  r.EarlyStop.Patience,
		Threshold: r.EarlyStop.Threshold,
	}
}
