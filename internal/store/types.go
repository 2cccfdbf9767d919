package store

import (
	"fmt"
	"time"

	"github.com/cwbudde/gafuncmin/internal/engine"
	"github.com/cwbudde/gafuncmin/internal/objective"
)

// JobConfig holds the configuration of an optimization job (checkpoint
// copy). Defined here rather than in the server package to avoid import
// cycles.
type JobConfig struct {
	Function           string           `json:"function"`
	PopulationSize     int              `json:"populationSize"`
	Generations        int              `json:"generations"`
	MutationRate       float64          `json:"mutationRate"`
	CrossoverRate      float64          `json:"crossoverRate"`
	TournamentSize     int              `json:"tournamentSize"`
	Bounds             objective.Bounds `json:"bounds"`
	Seed               int64            `json:"seed"`
	StepIntervalMs     int              `json:"stepIntervalMs,omitempty"`     // Delay between generations (0 = run flat out)
	CheckpointInterval int              `json:"checkpointInterval,omitempty"` // Checkpoint every N seconds (0 = disabled)
	EarlyStopPatience  int              `json:"earlyStopPatience,omitempty"`  // Stop after N stagnant generations (0 = disabled)
	EarlyStopThreshold float64          `json:"earlyStopThreshold,omitempty"` // Relative improvement counting as progress
}

// EngineConfig converts the job configuration to an engine configuration.
func (c JobConfig) EngineConfig() engine.Config {
	return engine.Config{
		PopulationSize: c.PopulationSize,
		Generations:    c.Generations,
		MutationRate:   c.MutationRate,
		CrossoverRate:  c.CrossoverRate,
		TournamentSize: c.TournamentSize,
		Bounds:         c.Bounds,
		FunctionType:   c.Function,
		Seed:           c.Seed,
	}
}

// Checkpoint is a saved snapshot of a job's progress that can be resumed
// later. The checkpoint records the best individual and the fitness
// histories, not the population itself: a resumed job restarts from a
// fresh random population under the same configuration (same seed if
// reproducibility matters), so resumption is a restart with provenance
// rather than a perfect continuation. Saving the population would tie the
// format to engine internals for little gain at these population sizes.
type Checkpoint struct {
	// JobID is the unique identifier for this optimization job.
	JobID string `json:"jobId"`

	// Best is the lowest-fitness individual found so far.
	Best engine.Individual `json:"best"`

	// BestFitness and AverageFitness are the per-generation histories,
	// one entry per completed generation including generation 0.
	BestFitness    []float64 `json:"bestFitness"`
	AverageFitness []float64 `json:"averageFitness"`

	// Generation is the number of completed evolution steps at the time
	// this checkpoint was created.
	Generation int `json:"generation"`

	// Timestamp records when this checkpoint was created.
	Timestamp time.Time `json:"timestamp"`

	// Config holds the job configuration, needed for validation and for
	// recreating the job on resume.
	Config JobConfig `json:"config"`
}

// CheckpointInfo contains checkpoint metadata without the fitness
// histories. Used for listing checkpoints without loading full data.
type CheckpointInfo struct {
	JobID       string    `json:"jobId"`
	BestFitness float64   `json:"bestFitness"`
	Generation  int       `json:"generation"`
	Timestamp   time.Time `json:"timestamp"`
	Function    string    `json:"function"`
	Population  int       `json:"population"`
}

// NewCheckpoint creates a checkpoint from runtime job state.
func NewCheckpoint(jobID string, best engine.Individual, bestHist, avgHist []float64, generation int, config JobConfig) *Checkpoint {
	return &Checkpoint{
		JobID:          jobID,
		Best:           best,
		BestFitness:    append([]float64(nil), bestHist...),
		AverageFitness: append([]float64(nil), avgHist...),
		Generation:     generation,
		Timestamp:      time.Now(),
		Config:         config,
	}
}

// ToInfo converts a full Checkpoint to its metadata.
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		JobID:       c.JobID,
		BestFitness: c.Best.Fitness,
		Generation:  c.Generation,
		Timestamp:   c.Timestamp,
		Function:    c.Config.Function,
		Population:  c.Config.PopulationSize,
	}
}

// Validate checks that the checkpoint holds a consistent snapshot.
func (c *Checkpoint) Validate() error {
	if c.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if c.Generation < 0 {
		return &ValidationError{Field: "Generation", Reason: "cannot be negative"}
	}
	if len(c.BestFitness) != len(c.AverageFitness) {
		return &ValidationError{Field: "BestFitness", Reason: "history lengths differ"}
	}
	if len(c.BestFitness) != c.Generation+1 {
		return &ValidationError{
			Field:  "BestFitness",
			Reason: fmt.Sprintf("expected %d entries for generation %d, got %d", c.Generation+1, c.Generation, len(c.BestFitness)),
		}
	}
	if c.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if err := c.Config.EngineConfig().Validate(); err != nil {
		return &ValidationError{Field: "Config", Reason: err.Error()}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks whether this checkpoint can seed a job with the
// given configuration. A resumed job must search the same surface.
func (c *Checkpoint) IsCompatible(config JobConfig) error {
	if c.Config.Function != config.Function {
		return &CompatibilityError{
			Field:    "Function",
			Expected: c.Config.Function,
			Actual:   config.Function,
		}
	}
	if c.Config.Bounds != config.Bounds {
		return &CompatibilityError{
			Field:    "Bounds",
			Expected: fmt.Sprintf("%+v", c.Config.Bounds),
			Actual:   fmt.Sprintf("%+v", config.Bounds),
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
