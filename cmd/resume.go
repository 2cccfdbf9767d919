package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/cwbudde/gafuncmin/internal/store"
)

var (
	resumeDataDir     string
	resumeServerURL   string
	resumeGenerations int
)

var resumeCmd = &cobra.Command{
	Use:   "resume [job-id]",
	Short: "Resume a checkpointed job as a new server job",
	Long: `Loads a checkpoint and submits a new job with the same configuration to
the server. The new job restarts from a fresh random population on the
same function and bounds; use --generations to grant a new budget.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVar(&resumeDataDir, "data-dir", "./data", "Base directory for checkpoint storage")
	resumeCmd.Flags().StringVar(&resumeServerURL, "server", "http://localhost:8080", "Server URL")
	resumeCmd.Flags().IntVar(&resumeGenerations, "generations", 0, "Override the generation budget (0 = keep stored budget)")

	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	checkpointStore, err := store.NewFSStore(resumeDataDir)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint store: %w", err)
	}

	checkpoint, err := checkpointStore.LoadCheckpoint(jobID)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if err := checkpoint.Validate(); err != nil {
		return fmt.Errorf("checkpoint is not usable: %w", err)
	}

	config := checkpoint.Config
	if resumeGenerations > 0 {
		config.Generations = resumeGenerations
	}
	if err := checkpoint.IsCompatible(config); err != nil {
		return fmt.Errorf("cannot resume: %w", err)
	}

	body, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode job request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/jobs", resumeServerURL)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server rejected job: %s", string(respBody))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Resumed %s as new job %s\n", jobID, created.ID)
	fmt.Printf("Previous best: f(%.6f, %.6f) = %.6g at generation %d\n",
		checkpoint.Best.X, checkpoint.Best.Y, checkpoint.Best.Fitness, checkpoint.Generation)

	return nil
}
