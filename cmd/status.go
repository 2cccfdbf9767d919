package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		// List all jobs
		url := fmt.Sprintf("%s/api/v1/jobs", serverURL)
		return listJobs(url)
	}

	// Get specific job status
	jobID := args[0]
	url := fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID)
	return getJobStatus(url, jobID)
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Printf("Job ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		if config, ok := job["config"].(map[string]interface{}); ok {
			fmt.Printf("  Function: %s\n", config["function"])
			fmt.Printf("  Population: %v\n", config["populationSize"])
		}
		fmt.Printf("  Generation: %v\n", job["generation"])
		if best, ok := job["best"].(map[string]interface{}); ok {
			fmt.Printf("  Best Fitness: %.6g\n", best["fitness"])
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	// Display status
	fmt.Printf("Job: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	if config, ok := status["config"].(map[string]interface{}); ok {
		fmt.Println("Configuration:")
		fmt.Printf("  Function: %s\n", config["function"])
		fmt.Printf("  Population: %v\n", config["populationSize"])
		fmt.Printf("  Generations: %v\n", config["generations"])
		fmt.Printf("  Mutation Rate: %v\n", config["mutationRate"])
		fmt.Printf("  Crossover Rate: %v\n", config["crossoverRate"])
		fmt.Printf("  Tournament: %v\n", config["tournamentSize"])
		fmt.Println()
	}

	fmt.Println("Progress:")
	fmt.Printf("  Generation: %v\n", status["generation"])
	if best, ok := status["best"].(map[string]interface{}); ok {
		fmt.Printf("  Best: f(%.6f, %.6f) = %.6g\n", best["x"], best["y"], best["fitness"])
		if initial, ok := status["initialBest"].(float64); ok && initial > 0 {
			fitness := best["fitness"].(float64)
			improvement := initial - fitness
			improvementPct := (improvement / initial) * 100
			fmt.Printf("  Improvement: %.6g (%.1f%%)\n", improvement, improvementPct)
		}
	}

	if status["elapsed"] != nil {
		elapsed := time.Duration(status["elapsed"].(float64) * float64(time.Second))
		fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	}

	if status["gps"] != nil && status["gps"].(float64) > 0 {
		fmt.Printf("  Throughput: %.0f generations/sec\n", status["gps"])
	}

	if status["error"] != nil && status["error"].(string) != "" {
		fmt.Printf("\nError: %s\n", status["error"])
	}

	return nil
}
