// Package engine implements a generational genetic algorithm that searches
// for the minimum of a two-dimensional objective function. One engine
// instance owns one evolving population; the driving caller steps it one
// generation at a time and reads immutable snapshots in between.
//
// Engine methods are not safe for concurrent use; a caller driving the
// engine from multiple goroutines must serialize access.
package engine

import (
	"math"
	"math/rand"
	"time"

	"github.com/cwbudde/gafuncmin/internal/objective"
)

// Individual is a candidate solution: a coordinate pair plus its cached
// fitness. Lower fitness is better. Individuals are value objects; the
// operators produce new ones rather than aliasing population slots.
type Individual struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Fitness float64 `json:"fitness"`
}

// Statistics is a snapshot of the fitness trend. BestFitness and
// AverageFitness hold one entry per completed generation, including
// generation 0 (the freshly initialized population).
type Statistics struct {
	Generation     int         `json:"generation"`
	BestFitness    []float64   `json:"bestFitness"`
	AverageFitness []float64   `json:"averageFitness"`
	CurrentBest    *Individual `json:"currentBest,omitempty"`
}

// Engine owns one evolving population and its statistics history.
type Engine struct {
	cfg Config
	fn  objective.Function
	rng *rand.Rand

	population []Individual
	generation int
	bestHist   []float64
	avgHist    []float64
}

// New constructs an engine for the given configuration. The configuration
// is validated in full before any population is created.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fn, err := objective.Lookup(cfg.FunctionType)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		cfg: cfg,
		fn:  fn,
		rng: rand.New(rand.NewSource(seed)),
	}, nil
}

// Initialize discards any existing population and statistics and generates
// a fresh random population, uniform over the configured bounds. Callable
// again at any time to restart under the same configuration.
func (e *Engine) Initialize() {
	e.population = make([]Individual, e.cfg.PopulationSize)
	for i := range e.population {
		e.population[i] = Individual{
			X: e.uniform(e.cfg.Bounds.Min, e.cfg.Bounds.Max),
			Y: e.uniform(e.cfg.Bounds.Min, e.cfg.Bounds.Max),
		}
	}
	e.evaluate()

	e.generation = 0
	e.bestHist = nil
	e.avgHist = nil
	e.recordStatistics()
}

// Evolve advances exactly one generation and returns true, or returns
// false without touching any state once the generation cap is reached
// (or before Initialize has been called).
func (e *Engine) Evolve() bool {
	if len(e.population) == 0 || e.generation >= e.cfg.Generations {
		return false
	}

	next := make([]Individual, 0, e.cfg.PopulationSize)
	for len(next) < e.cfg.PopulationSize {
		p1 := e.tournamentSelect()
		p2 := e.tournamentSelect()

		var c1, c2 Individual
		if e.rng.Float64() < e.cfg.CrossoverRate {
			c1, c2 = e.crossover(p1, p2)
		} else {
			c1, c2 = p1, p2
		}

		c1 = e.mutate(c1)
		c2 = e.mutate(c2)

		next = append(next, c1)
		// The second child of the final pair is dropped when the
		// population size is odd.
		if len(next) < e.cfg.PopulationSize {
			next = append(next, c2)
		}
	}

	e.population = next
	e.evaluate()
	e.generation++
	e.recordStatistics()

	return true
}

// Population returns a copy of the current population. Empty before the
// first Initialize call.
func (e *Engine) Population() []Individual {
	out := make([]Individual, len(e.population))
	copy(out, e.population)
	return out
}

// Generation returns the number of completed evolution steps.
func (e *Engine) Generation() int {
	return e.generation
}

// BestIndividual returns the lowest-fitness individual of the current
// population. The second return value is false iff the population is
// empty, which is only possible before the first Initialize call.
func (e *Engine) BestIndividual() (Individual, bool) {
	if len(e.population) == 0 {
		return Individual{}, false
	}

	best := e.population[0]
	for _, ind := range e.population[1:] {
		if ind.Fitness < best.Fitness {
			best = ind
		}
	}
	return best, true
}

// Statistics returns a snapshot of the fitness history. The slices are
// copies; holders cannot observe later mutation of engine state.
func (e *Engine) Statistics() Statistics {
	stats := Statistics{
		Generation:     e.generation,
		BestFitness:    append([]float64(nil), e.bestHist...),
		AverageFitness: append([]float64(nil), e.avgHist...),
	}
	if best, ok := e.BestIndividual(); ok {
		stats.CurrentBest = &best
	}
	return stats
}

// Bounds returns the search interval applied to both axes.
func (e *Engine) Bounds() objective.Bounds {
	return e.cfg.Bounds
}

// ContourLevels returns the configured function's contour levels, for a
// rendering collaborator. The engine itself never uses them.
func (e *Engine) ContourLevels() []float64 {
	return append([]float64(nil), e.fn.ContourLevels...)
}

// Config returns the engine's immutable configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// evaluate recomputes every individual's fitness in one batch.
func (e *Engine) evaluate() {
	for i := range e.population {
		e.population[i].Fitness = e.fn.Eval(e.population[i].X, e.population[i].Y)
	}
}

// recordStatistics appends one best/average entry for the current
// population, keeping both histories the same length as generation+1.
func (e *Engine) recordStatistics() {
	best := math.Inf(1)
	sum := 0.0
	for _, ind := range e.population {
		if ind.Fitness < best {
			best = ind.Fitness
		}
		sum += ind.Fitness
	}

	e.bestHist = append(e.bestHist, best)
	e.avgHist = append(e.avgHist, sum/float64(len(e.population)))
}

// uniform draws from [lo, hi).
func (e *Engine) uniform(lo, hi float64) float64 {
	return lo + e.rng.Float64()*(hi-lo)
}
