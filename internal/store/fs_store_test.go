package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/gafuncmin/internal/engine"
	"github.com/cwbudde/gafuncmin/internal/objective"
)

// setupTestStore creates a temporary directory and returns an FSStore.
func setupTestStore(t *testing.T) (*FSStore, string) {
	t.Helper()

	tempDir := t.TempDir()
	s, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return s, tempDir
}

func testJobConfig() JobConfig {
	return JobConfig{
		Function:       "sphere",
		PopulationSize: 50,
		Generations:    100,
		MutationRate:   0.1,
		CrossoverRate:  0.8,
		TournamentSize: 3,
		Bounds:         objective.Bounds{Min: -10, Max: 10},
		Seed:           42,
	}
}

// createTestCheckpoint creates a checkpoint at generation 2.
func createTestCheckpoint(jobID string) *Checkpoint {
	return &Checkpoint{
		JobID:          jobID,
		Best:           engine.Individual{X: 0.1, Y: -0.2, Fitness: 0.05},
		BestFitness:    []float64{12.5, 3.1, 0.05},
		AverageFitness: []float64{48.2, 20.7, 9.4},
		Generation:     2,
		Timestamp:      time.Now(),
		Config:         testJobConfig(),
	}
}

func TestNewFSStore(t *testing.T) {
	tempDir := t.TempDir()

	s, err := NewFSStore(tempDir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	if s == nil {
		t.Fatal("Expected non-nil store")
	}

	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		t.Fatal("Base directory was not created")
	}
}

func TestSaveAndLoadCheckpoint(t *testing.T) {
	s, tempDir := setupTestStore(t)

	jobID := "test-job-123"
	checkpoint := createTestCheckpoint(jobID)

	if err := s.SaveCheckpoint(jobID, checkpoint); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	expectedPath := filepath.Join(tempDir, "jobs", jobID, "checkpoint.json")
	if _, err := os.Stat(expectedPath); os.IsNotExist(err) {
		t.Fatalf("Checkpoint file was not created at %s", expectedPath)
	}

	loaded, err := s.LoadCheckpoint(jobID)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}

	if loaded.JobID != jobID {
		t.Errorf("JobID = %s, want %s", loaded.JobID, jobID)
	}
	if loaded.Best != checkpoint.Best {
		t.Errorf("Best = %+v, want %+v", loaded.Best, checkpoint.Best)
	}
	if loaded.Generation != 2 {
		t.Errorf("Generation = %d, want 2", loaded.Generation)
	}
	if len(loaded.BestFitness) != 3 || len(loaded.AverageFitness) != 3 {
		t.Errorf("History lengths = %d/%d, want 3/3",
			len(loaded.BestFitness), len(loaded.AverageFitness))
	}
	if loaded.Config.Function != "sphere" {
		t.Errorf("Config.Function = %s, want sphere", loaded.Config.Function)
	}
}

func TestSaveCheckpointOverwrites(t *testing.T) {
	s, _ := setupTestStore(t)

	jobID := "overwrite-job"
	first := createTestCheckpoint(jobID)
	if err := s.SaveCheckpoint(jobID, first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	second := createTestCheckpoint(jobID)
	second.Generation = 3
	second.BestFitness = append(second.BestFitness, 0.01)
	second.AverageFitness = append(second.AverageFitness, 4.2)
	if err := s.SaveCheckpoint(jobID, second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := s.LoadCheckpoint(jobID)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}
	if loaded.Generation != 3 {
		t.Errorf("Generation = %d, want 3 (overwritten)", loaded.Generation)
	}
}

func TestSaveCheckpointRejectsBadInput(t *testing.T) {
	s, _ := setupTestStore(t)

	if err := s.SaveCheckpoint("", createTestCheckpoint("x")); err == nil {
		t.Error("SaveCheckpoint should reject empty jobID")
	}
	if err := s.SaveCheckpoint("x", nil); err == nil {
		t.Error("SaveCheckpoint should reject nil checkpoint")
	}
}

func TestLoadCheckpointNotFound(t *testing.T) {
	s, _ := setupTestStore(t)

	_, err := s.LoadCheckpoint("missing-job")
	if err == nil {
		t.Fatal("LoadCheckpoint should fail for missing job")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListCheckpoints(t *testing.T) {
	s, _ := setupTestStore(t)

	// Empty store
	infos, err := s.ListCheckpoints()
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected 0 checkpoints, got %d", len(infos))
	}

	for _, id := range []string{"job-a", "job-b", "job-c"} {
		if err := s.SaveCheckpoint(id, createTestCheckpoint(id)); err != nil {
			t.Fatalf("SaveCheckpoint(%s) failed: %v", id, err)
		}
	}

	infos, err = s.ListCheckpoints()
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 checkpoints, got %d", len(infos))
	}

	for _, info := range infos {
		if info.Function != "sphere" {
			t.Errorf("Info.Function = %s, want sphere", info.Function)
		}
		if info.Generation != 2 {
			t.Errorf("Info.Generation = %d, want 2", info.Generation)
		}
	}
}

func TestDeleteCheckpoint(t *testing.T) {
	s, tempDir := setupTestStore(t)

	jobID := "delete-me"
	if err := s.SaveCheckpoint(jobID, createTestCheckpoint(jobID)); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	if err := s.DeleteCheckpoint(jobID); err != nil {
		t.Fatalf("DeleteCheckpoint failed: %v", err)
	}

	jobDir := filepath.Join(tempDir, "jobs", jobID)
	if _, err := os.Stat(jobDir); !os.IsNotExist(err) {
		t.Error("Job directory should be removed")
	}

	err := s.DeleteCheckpoint(jobID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Second delete should report ErrNotFound, got %v", err)
	}
}
