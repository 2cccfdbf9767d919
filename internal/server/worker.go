package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/gafuncmin/internal/engine"
	"github.com/cwbudde/gafuncmin/internal/store"
)

// runJob executes an optimization job in the background. The worker owns
// the engine instance for the job's whole lifetime; nothing else touches
// it. If checkpointStore is not nil and the job has checkpointInterval > 0,
// periodic checkpoints are saved from the published job state.
func runJob(ctx context.Context, jm *JobManager, checkpointStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	eng, err := engine.New(job.Config.EngineConfig())
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("invalid configuration: %w", err))
		return err
	}

	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	}); err != nil {
		return err
	}

	slog.Info("Starting job",
		"job_id", jobID,
		"function", job.Config.Function,
		"population", job.Config.PopulationSize,
		"generations", job.Config.Generations,
	)

	eng.Initialize()
	publishSnapshot(jm, jobID, eng)

	jm.UpdateJob(jobID, func(j *Job) {
		j.InitialBest = eng.Statistics().BestFitness[0]
	})

	// Start progress monitoring goroutine
	start := time.Now()
	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressDone)

	// Start checkpoint monitoring goroutine if enabled
	checkpointDone := make(chan struct{})
	if checkpointStore != nil && job.Config.CheckpointInterval > 0 {
		go monitorCheckpoints(ctx, jm, checkpointStore, jobID, checkpointDone)
	} else {
		close(checkpointDone)
	}
	defer func() {
		close(progressDone)
		if checkpointStore != nil && job.Config.CheckpointInterval > 0 {
			close(checkpointDone)
		}
	}()

	tracker := engine.NewConvergenceTracker(convergenceConfigFor(job.Config))
	stepInterval := time.Duration(job.Config.StepIntervalMs) * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			markJobCancelled(jm, jobID)
			return ctx.Err()
		default:
		}

		if !eng.Evolve() {
			break
		}
		publishSnapshot(jm, jobID, eng)

		if best, ok := eng.BestIndividual(); ok && tracker.Update(best.Fitness) {
			slog.Info("Job converged early", "job_id", jobID, "generation", eng.Generation())
			break
		}

		if stepInterval > 0 {
			select {
			case <-ctx.Done():
				markJobCancelled(jm, jobID)
				return ctx.Err()
			case <-time.After(stepInterval):
			}
		}
	}

	elapsed := time.Since(start)

	// Final checkpoint so completed jobs are resumable even with a long
	// checkpoint interval.
	if checkpointStore != nil && job.Config.CheckpointInterval > 0 {
		if err := saveCheckpoint(jm, checkpointStore, jobID); err != nil {
			slog.Warn("Failed to save final checkpoint", "job_id", jobID, "error", err)
		}
	}

	endTime := time.Now()
	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.EndTime = &endTime
	}); err != nil {
		return err
	}

	final, _ := jm.GetJob(jobID)
	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"generations", final.Generation,
		"initial_best", final.InitialBest,
		"final_best", bestFitnessOf(final),
	)

	jm.broadcaster.Broadcast(progressEventFor(final))
	return nil
}

// publishSnapshot copies the engine's state into the job document.
func publishSnapshot(jm *JobManager, jobID string, eng *engine.Engine) {
	stats := eng.Statistics()
	population := eng.Population()

	jm.UpdateJob(jobID, func(j *Job) {
		j.Generation = stats.Generation
		j.Best = stats.CurrentBest
		j.BestHistory = stats.BestFitness
		j.AverageHistory = stats.AverageFitness
		j.Population = population
	})
}

// convergenceConfigFor maps optional job-level early-stop settings onto
// the tracker config. Patience 0 leaves early stopping disabled.
func convergenceConfigFor(cfg JobConfig) engine.ConvergenceConfig {
	if cfg.EarlyStopPatience <= 0 {
		return engine.DisabledConvergenceConfig()
	}
	threshold := cfg.EarlyStopThreshold
	if threshold <= 0 {
		threshold = 0.001
	}
	return engine.ConvergenceConfig{
		Enabled:   true,
		Patience:  cfg.EarlyStopPatience,
		Threshold: threshold,
	}
}

// monitorProgress periodically broadcasts progress events during optimization
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}
			jm.broadcaster.Broadcast(progressEventFor(job))
		}
	}
}

// progressEventFor builds a progress event from the current job state.
func progressEventFor(job *Job) ProgressEvent {
	event := ProgressEvent{
		JobID:      job.ID,
		State:      job.State,
		Generation: job.Generation,
		Timestamp:  time.Now(),
	}
	if n := len(job.BestHistory); n > 0 {
		event.BestFitness = job.BestHistory[n-1]
		event.AverageFitness = job.AverageHistory[n-1]
	}
	return event
}

func bestFitnessOf(job *Job) float64 {
	if job.Best != nil {
		return job.Best.Fitness
	}
	return 0
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}

// monitorCheckpoints periodically saves checkpoints during optimization
func monitorCheckpoints(ctx context.Context, jm *JobManager, checkpointStore store.Store, jobID string, done chan struct{}) {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return
	}

	interval := time.Duration(job.Config.CheckpointInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := saveCheckpoint(jm, checkpointStore, jobID); err != nil {
				slog.Error("Failed to save checkpoint", "job_id", jobID, "error", err)
			}
		}
	}
}

// saveCheckpoint snapshots the published job state into the store.
func saveCheckpoint(jm *JobManager, checkpointStore store.Store, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	// Skip until the first generation has been published
	if job.Best == nil || len(job.BestHistory) == 0 {
		slog.Debug("Skipping checkpoint, no progress yet", "job_id", jobID)
		return nil
	}

	checkpoint := store.NewCheckpoint(
		jobID,
		*job.Best,
		job.BestHistory,
		job.AverageHistory,
		job.Generation,
		job.Config,
	)

	if err := checkpointStore.SaveCheckpoint(jobID, checkpoint); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	slog.Info("Checkpoint saved",
		"job_id", jobID,
		"generation", job.Generation,
		"best_fitness", job.Best.Fitness,
	)
	return nil
}
