package engine

import (
	"testing"

	"github.com/cwbudde/gafuncmin/internal/objective"
)

// newTestEngine builds an engine with a fixed seed and small budgets.
func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()

	cfg := DefaultConfig()
	cfg.PopulationSize = 20
	cfg.Generations = 10
	cfg.Seed = 42
	if mutate != nil {
		mutate(&cfg)
	}

	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func TestUninitializedEngineIsSafeToQuery(t *testing.T) {
	e := newTestEngine(t, nil)

	if got := len(e.Population()); got != 0 {
		t.Errorf("Population before Initialize should be empty, got %d", got)
	}
	if _, ok := e.BestIndividual(); ok {
		t.Error("BestIndividual before Initialize should report none")
	}
	if e.Evolve() {
		t.Error("Evolve before Initialize should return false")
	}
	stats := e.Statistics()
	if len(stats.BestFitness) != 0 || stats.CurrentBest != nil {
		t.Errorf("Statistics before Initialize should be empty, got %+v", stats)
	}
}

func TestInitializePopulation(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Initialize()

	pop := e.Population()
	if len(pop) != 20 {
		t.Fatalf("Expected 20 individuals, got %d", len(pop))
	}

	fn, _ := objective.Lookup(e.Config().FunctionType)
	bounds := e.Bounds()
	for i, ind := range pop {
		if ind.X < bounds.Min || ind.X > bounds.Max || ind.Y < bounds.Min || ind.Y > bounds.Max {
			t.Errorf("Individual %d out of bounds: %+v", i, ind)
		}
		if ind.Fitness != fn.Eval(ind.X, ind.Y) {
			t.Errorf("Individual %d fitness not consistent with objective: %+v", i, ind)
		}
	}

	if e.Generation() != 0 {
		t.Errorf("Generation after Initialize = %d, want 0", e.Generation())
	}

	stats := e.Statistics()
	if len(stats.BestFitness) != 1 || len(stats.AverageFitness) != 1 {
		t.Errorf("Expected one statistics entry after Initialize, got %d/%d",
			len(stats.BestFitness), len(stats.AverageFitness))
	}
}

func TestInitializeRestartsCleanly(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Initialize()
	for i := 0; i < 5; i++ {
		e.Evolve()
	}

	e.Initialize()

	if e.Generation() != 0 {
		t.Errorf("Generation after re-Initialize = %d, want 0", e.Generation())
	}
	stats := e.Statistics()
	if len(stats.BestFitness) != 1 {
		t.Errorf("Statistics should be reset, got %d entries", len(stats.BestFitness))
	}
}

func TestEvolveHonorsGenerationBudget(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Initialize()

	for i := 0; i < 10; i++ {
		if !e.Evolve() {
			t.Fatalf("Evolve %d should return true", i)
		}
	}

	if e.Generation() != 10 {
		t.Fatalf("Generation = %d, want 10", e.Generation())
	}

	// Terminal: further calls are no-ops
	before := e.Statistics()
	for i := 0; i < 3; i++ {
		if e.Evolve() {
			t.Error("Evolve past the budget should return false")
		}
	}
	after := e.Statistics()

	if e.Generation() != 10 {
		t.Errorf("Generation changed after terminal Evolve: %d", e.Generation())
	}
	if len(after.BestFitness) != len(before.BestFitness) {
		t.Error("Statistics grew after terminal Evolve")
	}
}

func TestEvolvePreservesPopulationSizeAndBounds(t *testing.T) {
	for _, size := range []int{1, 7, 20} {
		e := newTestEngine(t, func(c *Config) {
			c.PopulationSize = size
			c.MutationRate = 1 // maximum perturbation pressure
		})
		e.Initialize()

		for g := 0; g < 10; g++ {
			e.Evolve()

			pop := e.Population()
			if len(pop) != size {
				t.Fatalf("size %d, gen %d: population size %d", size, g, len(pop))
			}
			bounds := e.Bounds()
			for _, ind := range pop {
				if ind.X < bounds.Min || ind.X > bounds.Max || ind.Y < bounds.Min || ind.Y > bounds.Max {
					t.Fatalf("size %d, gen %d: individual out of bounds: %+v", size, g, ind)
				}
			}
		}
	}
}

func TestStatisticsLengthTracksGeneration(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Initialize()

	for i := 0; i < 10; i++ {
		stats := e.Statistics()
		want := e.Generation() + 1
		if len(stats.BestFitness) != want || len(stats.AverageFitness) != want {
			t.Fatalf("gen %d: history lengths %d/%d, want %d",
				e.Generation(), len(stats.BestFitness), len(stats.AverageFitness), want)
		}
		e.Evolve()
	}
}

func TestBestIndividualPicksLowestFitness(t *testing.T) {
	e := newTestEngine(t, nil)
	e.population = []Individual{
		{X: 2, Y: 3, Fitness: 13},
		{X: 0, Y: 1, Fitness: 1},
		{X: 1, Y: 2, Fitness: 5},
	}

	best, ok := e.BestIndividual()
	if !ok {
		t.Fatal("BestIndividual should find an individual")
	}
	if best.Fitness != 1 {
		t.Errorf("BestIndividual fitness = %f, want 1", best.Fitness)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Initialize()

	pop := e.Population()
	pop[0].X = 9999
	if e.Population()[0].X == 9999 {
		t.Error("Population snapshot aliases engine state")
	}

	stats := e.Statistics()
	stats.BestFitness[0] = -1
	if e.Statistics().BestFitness[0] == -1 {
		t.Error("Statistics snapshot aliases engine state")
	}
}

func TestDeterministicGivenSeed(t *testing.T) {
	run := func() []float64 {
		e := newTestEngine(t, nil)
		e.Initialize()
		for e.Evolve() {
		}
		return e.Statistics().BestFitness
	}

	a := run()
	b := run()

	if len(a) != len(b) {
		t.Fatalf("History lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Non-deterministic at generation %d: %f vs %f", i, a[i], b[i])
		}
	}
}

// The population's mean fitness should usually improve over 10 generations.
// Individual seeds may regress; the majority across seeds must not.
func TestMeanFitnessImprovesForMostSeeds(t *testing.T) {
	improved := 0
	const trials = 15

	for seed := int64(1); seed <= trials; seed++ {
		e := newTestEngine(t, func(c *Config) {
			c.PopulationSize = 40
			c.Seed = seed
		})
		e.Initialize()
		initial := e.Statistics().AverageFitness[0]

		for i := 0; i < 10; i++ {
			e.Evolve()
		}
		final := e.Statistics().AverageFitness[10]

		if final <= initial {
			improved++
		}
	}

	if improved <= trials/2 {
		t.Errorf("Mean fitness improved in only %d/%d trials", improved, trials)
	}
}
