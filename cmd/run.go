package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/gafuncmin/internal/config"
	"github.com/cwbudde/gafuncmin/internal/engine"
	"github.com/cwbudde/gafuncmin/internal/store"
)

var (
	runConfigPath string
	functionType  string
	popSize       int
	generations   int
	mutationRate  float64
	crossoverRate float64
	tournament    int
	seed          int64
	earlyStop     bool
	patience      int
	threshold     float64
	traceRun      bool
	runDataDir    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run single-shot optimization",
	Long: `Runs a genetic-algorithm minimization of the selected benchmark function
to its generation budget and prints the best point found. Settings come
from a YAML config file, flags, or both; flags win.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "YAML run configuration file")
	runCmd.Flags().StringVar(&functionType, "function", "sphere", "Objective function: sphere, rosenbrock, ackley, rastrigin")
	runCmd.Flags().IntVar(&popSize, "pop", 50, "Population size")
	runCmd.Flags().IntVar(&generations, "generations", 100, "Generation budget")
	runCmd.Flags().Float64Var(&mutationRate, "mutation-rate", 0.1, "Per-individual mutation probability")
	runCmd.Flags().Float64Var(&crossoverRate, "crossover-rate", 0.8, "Per-pair crossover probability")
	runCmd.Flags().IntVar(&tournament, "tournament", 3, "Tournament size for parent selection")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time-based)")
	runCmd.Flags().BoolVar(&earlyStop, "early-stop", false, "Stop when best fitness stagnates")
	runCmd.Flags().IntVar(&patience, "patience", 10, "Stagnant generations before early stop")
	runCmd.Flags().Float64Var(&threshold, "threshold", 0.001, "Relative improvement counting as progress")
	runCmd.Flags().BoolVar(&traceRun, "trace", false, "Write a per-generation JSONL trace")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "./data", "Base directory for trace output")

	rootCmd.AddCommand(runCmd)
}

// resolveRunConfig merges the config file (when given) with flags the user
// set explicitly. Flags left at their defaults do not override file values.
func resolveRunConfig(cmd *cobra.Command) (config.Run, error) {
	run := config.Default()

	if runConfigPath != "" {
		loaded, err := config.Load(runConfigPath)
		if err != nil {
			return run, err
		}
		run = loaded
	}

	if cmd.Flags().Changed("function") || runConfigPath == "" {
		run.Function = functionType
	}
	if cmd.Flags().Changed("pop") {
		run.PopulationSize = popSize
	}
	if cmd.Flags().Changed("generations") {
		run.Generations = generations
	}
	if cmd.Flags().Changed("mutation-rate") {
		run.MutationRate = mutationRate
	}
	if cmd.Flags().Changed("crossover-rate") {
		run.CrossoverRate = crossoverRate
	}
	if cmd.Flags().Changed("tournament") {
		run.TournamentSize = tournament
	}
	if cmd.Flags().Changed("seed") {
		run.Seed = seed
	}
	if cmd.Flags().Changed("early-stop") {
		run.EarlyStop.Enabled = earlyStop
	}
	if cmd.Flags().Changed("patience") {
		run.EarlyStop.Patience = patience
	}
	if cmd.Flags().Changed("threshold") {
		run.EarlyStop.Threshold = threshold
	}

	return run, nil
}

func runOptimization(cmd *cobra.Command, args []string) error {
	run, err := resolveRunConfig(cmd)
	if err != nil {
		return err
	}

	cfg, err := run.EngineConfig()
	if err != nil {
		return fmt.Errorf("invalid run configuration: %w", err)
	}

	slog.Info("Starting optimization",
		"function", cfg.FunctionType,
		"pop", cfg.PopulationSize,
		"generations", cfg.Generations,
		"seed", cfg.Seed,
	)

	eng, err := engine.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	var trace *store.TraceWriter
	runID := uuid.New().String()
	if traceRun {
		trace, err = store.NewTraceWriter(runDataDir, runID, false)
		if err != nil {
			return fmt.Errorf("failed to create trace writer: %w", err)
		}
		defer trace.Close()
		slog.Info("Tracing run", "run_id", runID, "path", trace.Path())
	}

	tracker := engine.NewConvergenceTracker(run.ConvergenceConfig())

	start := time.Now()
	eng.Initialize()

	initial, _ := eng.BestIndividual()
	writeTraceEntry(trace, eng)

	for eng.Evolve() {
		writeTraceEntry(trace, eng)

		best, _ := eng.BestIndividual()
		if tracker.Update(best.Fitness) {
			slog.Info("Early stop triggered",
				"generation", eng.Generation(),
				"stale_generations", tracker.StaleCount(),
			)
			break
		}
	}

	elapsed := time.Since(start)
	best, ok := eng.BestIndividual()
	if !ok {
		return fmt.Errorf("optimization produced no result")
	}

	gps := float64(0)
	if elapsed.Seconds() > 0 {
		gps = float64(eng.Generation()) / elapsed.Seconds()
	}

	slog.Info("Optimization complete",
		"elapsed", elapsed,
		"generations", eng.Generation(),
		"initial_fitness", initial.Fitness,
		"final_fitness", best.Fitness,
		"generations_per_second", fmt.Sprintf("%.0f", gps),
	)

	fmt.Printf("Best: f(%.6f, %.6f) = %.6g after %d generations (%.6g -> %.6g)\n",
		best.X, best.Y, best.Fitness, eng.Generation(), initial.Fitness, best.Fitness)

	return nil
}

func writeTraceEntry(trace *store.TraceWriter, eng *engine.Engine) {
	if trace == nil {
		return
	}

	stats := eng.Statistics()
	entry := store.TraceEntry{
		Generation: stats.Generation,
		Timestamp:  time.Now(),
		Best:       stats.CurrentBest,
	}
	if n := len(stats.BestFitness); n > 0 {
		entry.BestFitness = stats.BestFitness[n-1]
		entry.AverageFitness = stats.AverageFitness[n-1]
	}

	if err := trace.Write(entry); err != nil {
		slog.Warn("Failed to write trace entry", "error", err)
	}
}
