package engine

import (
	"log/slog"
	"math"
)

// ConvergenceConfig defines parameters for detecting search stagnation.
// Disabled by default so the engine always runs the full generation budget
// unless a driver opts in.
type ConvergenceConfig struct {
	// Enabled controls whether stagnation detection is active.
	Enabled bool

	// Patience is the number of generations with no significant
	// improvement before the search is considered converged.
	Patience int

	// Threshold is the minimum relative improvement of the best fitness
	// required to count as progress, e.g. 0.001 = 0.1%.
	Threshold float64
}

// DefaultConvergenceConfig returns sensible defaults for drivers that
// enable early stopping.
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  10,
		Threshold: 0.001,
	}
}

// DisabledConvergenceConfig returns a config that never reports convergence.
func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{Enabled: false}
}

// ConvergenceTracker watches the per-generation best fitness and reports
// when it has stopped improving. It lives outside the Engine: stopping the
// series of Evolve calls is a driver-level decision.
type ConvergenceTracker struct {
	config          ConvergenceConfig
	bestFitness     float64
	lastSignificant float64
	staleCount      int
}

// NewConvergenceTracker creates a tracker with the given config.
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		bestFitness:     math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records the best fitness of one generation and returns true if
// the search has stagnated for Patience generations.
func (c *ConvergenceTracker) Update(fitness float64) bool {
	if !c.config.Enabled {
		return false
	}

	if fitness < c.bestFitness {
		c.bestFitness = fitness
	}

	// First observation seeds the reference point.
	if math.IsInf(c.lastSignificant, 1) {
		c.lastSignificant = fitness
		return false
	}

	relativeImprovement := (c.lastSignificant - fitness) / math.Abs(c.lastSignificant)

	if relativeImprovement >= c.config.Threshold {
		c.lastSignificant = fitness
		c.staleCount = 0
		return false
	}

	c.staleCount++
	slog.Debug("No significant fitness improvement",
		"fitness", fitness,
		"last_significant", c.lastSignificant,
		"stale_count", c.staleCount,
		"patience", c.config.Patience,
	)

	if c.staleCount >= c.config.Patience {
		slog.Info("Convergence detected",
			"stale_count", c.staleCount,
			"best_fitness", c.bestFitness,
		)
		return true
	}

	return false
}

// BestFitness returns the best fitness seen so far.
func (c *ConvergenceTracker) BestFitness() float64 {
	return c.bestFitness
}

// StaleCount returns the current number of generations without improvement.
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}

// Reset clears the tracker's state.
func (c *ConvergenceTracker) Reset() {
	c.bestFitness = math.Inf(1)
	c.lastSignificant = math.Inf(1)
	c.staleCount = 0
}
