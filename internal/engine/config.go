package engine

import (
	"fmt"

	"github.com/cwbudde/gafuncmin/internal/objective"
)

// Config fixes every parameter of one engine instance. Changing any field
// requires constructing a new engine; there is no in-place reconfiguration.
type Config struct {
	// PopulationSize is the number of individuals maintained each generation.
	PopulationSize int

	// Generations is the maximum number of evolution steps before the
	// engine reports completion.
	Generations int

	// MutationRate is the per-individual probability that Gaussian
	// mutation is applied. Must be in [0,1].
	MutationRate float64

	// CrossoverRate is the per-pair probability that BLX crossover is
	// applied instead of copying the parents. Must be in [0,1].
	CrossoverRate float64

	// TournamentSize is the number of contenders sampled per
	// tournament-selection draw.
	TournamentSize int

	// Bounds is the closed interval applied to both axes.
	Bounds objective.Bounds

	// FunctionType selects the registry entry to minimize.
	FunctionType string

	// Seed initializes the engine's random source. Zero means the seed is
	// derived from the current time at construction.
	Seed int64
}

// DefaultConfig returns the configuration used when the caller does not
// override anything. Bounds come from the default function's registry entry.
func DefaultConfig() Config {
	fn, _ := objective.Lookup(objective.DefaultFunction)
	return Config{
		PopulationSize: 50,
		Generations:    100,
		MutationRate:   0.1,
		CrossoverRate:  0.8,
		TournamentSize: 3,
		Bounds:         fn.Bounds,
		FunctionType:   objective.DefaultFunction,
	}
}

// Validate checks every configuration field. Invalid values are rejected
// here, before any population exists; nothing is silently clamped.
func (c Config) Validate() error {
	if c.PopulationSize < 1 {
		return fmt.Errorf("populationSize must be >= 1, got %d", c.PopulationSize)
	}
	if c.Generations < 1 {
		return fmt.Errorf("generations must be >= 1, got %d", c.Generations)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("mutationRate must be in [0,1], got %f", c.MutationRate)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("crossoverRate must be in [0,1], got %f", c.CrossoverRate)
	}
	if c.TournamentSize < 1 {
		return fmt.Errorf("tournamentSize must be >= 1, got %d", c.TournamentSize)
	}
	if c.Bounds.Min >= c.Bounds.Max {
		return fmt.Errorf("bounds min must be < max, got [%f, %f]", c.Bounds.Min, c.Bounds.Max)
	}
	if _, err := objective.Lookup(c.FunctionType); err != nil {
		return err
	}
	return nil
}
