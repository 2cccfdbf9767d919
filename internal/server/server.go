package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/gafuncmin/internal/engine"
	"github.com/cwbudde/gafuncmin/internal/objective"
	"github.com/cwbudde/gafuncmin/internal/store"
)

// Server represents the HTTP server
type Server struct {
	jobManager      *JobManager
	checkpointStore store.Store
	addr            string
	server          *http.Server
}

// NewServer creates a new HTTP server. checkpointStore may be nil to
// disable checkpointing.
func NewServer(addr string, checkpointStore store.Store) *Server {
	return &Server{
		jobManager:      NewJobManager(),
		checkpointStore: checkpointStore,
		addr:            addr,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/v1/functions", s.handleListFunctions)
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)

	handler := s.loggingMiddleware(s.corsMiddleware(mux))

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: handler,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown cancels running jobs and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")

	for _, job := range s.jobManager.GetRunningJobs() {
		if err := s.jobManager.CancelJob(job.ID); err != nil {
			slog.Warn("Failed to cancel job during shutdown", "job_id", job.ID, "error", err)
		}
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleIndex describes the API surface at the root path.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "gafuncmin",
		"endpoints": []string{
			"GET  /api/v1/functions",
			"POST /api/v1/jobs",
			"GET  /api/v1/jobs",
			"GET  /api/v1/jobs/{id}/status",
			"GET  /api/v1/jobs/{id}/population",
			"GET  /api/v1/jobs/{id}/events",
			"GET  /api/v1/jobs/{id}/live",
			"POST /api/v1/jobs/{id}/cancel",
		},
	})
}

// functionInfo is the wire form of a registry entry.
type functionInfo struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Bounds        objective.Bounds `json:"bounds"`
	ContourLevels []float64        `json:"contourLevels"`
}

// handleListFunctions handles GET /api/v1/functions
func (s *Server) handleListFunctions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := make([]functionInfo, 0, len(objective.Names()))
	for _, id := range objective.Names() {
		fn, err := objective.Lookup(id)
		if err != nil {
			continue
		}
		infos = append(infos, functionInfo{
			ID:            id,
			Name:          fn.Name,
			Bounds:        fn.Bounds,
			ContourLevels: fn.ContourLevels,
		})
	}

	writeJSON(w, http.StatusOK, infos)
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]

	switch {
	case len(parts) == 1 || parts[1] == "status":
		s.handleGetJobStatus(w, r, jobID)
	case parts[1] == "population":
		s.handleGetPopulation(w, r, jobID)
	case parts[1] == "events":
		s.handleJobStream(w, r, jobID)
	case parts[1] == "live":
		s.handleJobLive(w, r, jobID)
	case parts[1] == "cancel":
		s.handleCancelJob(w, r, jobID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// createJobRequest uses pointers for the rates so an explicit zero can be
// told apart from an absent field.
type createJobRequest struct {
	Function           string            `json:"function"`
	PopulationSize     int               `json:"populationSize"`
	Generations        int               `json:"generations"`
	MutationRate       *float64          `json:"mutationRate"`
	CrossoverRate      *float64          `json:"crossoverRate"`
	TournamentSize     int               `json:"tournamentSize"`
	Bounds             *objective.Bounds `json:"bounds"`
	Seed               int64             `json:"seed"`
	StepIntervalMs     int               `json:"stepIntervalMs"`
	CheckpointInterval int               `json:"checkpointInterval"`
	EarlyStopPatience  int               `json:"earlyStopPatience"`
	EarlyStopThreshold float64           `json:"earlyStopThreshold"`
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	config, err := resolveJobConfig(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobManager.CreateJob(config)

	// Start worker in background with a cancellable context
	ctx, cancel := context.WithCancel(context.Background())
	s.jobManager.RegisterCancel(job.ID, cancel)
	go runJob(ctx, s.jobManager, s.checkpointStore, job.ID)

	writeJSON(w, http.StatusCreated, job)
}

// resolveJobConfig fills defaults for absent fields and validates the
// result. Invalid values are rejected, never clamped.
func resolveJobConfig(req createJobRequest) (JobConfig, error) {
	defaults := engine.DefaultConfig()

	config := JobConfig{
		Function:           req.Function,
		PopulationSize:     req.PopulationSize,
		Generations:        req.Generations,
		TournamentSize:     req.TournamentSize,
		MutationRate:       defaults.MutationRate,
		CrossoverRate:      defaults.CrossoverRate,
		Seed:               req.Seed,
		StepIntervalMs:     req.StepIntervalMs,
		CheckpointInterval: req.CheckpointInterval,
		EarlyStopPatience:  req.EarlyStopPatience,
		EarlyStopThreshold: req.EarlyStopThreshold,
	}

	if config.Function == "" {
		config.Function = defaults.FunctionType
	}
	if config.PopulationSize == 0 {
		config.PopulationSize = defaults.PopulationSize
	}
	if config.Generations == 0 {
		config.Generations = defaults.Generations
	}
	if config.TournamentSize == 0 {
		config.TournamentSize = defaults.TournamentSize
	}
	if req.MutationRate != nil {
		config.MutationRate = *req.MutationRate
	}
	if req.CrossoverRate != nil {
		config.CrossoverRate = *req.CrossoverRate
	}

	if req.Bounds != nil {
		config.Bounds = *req.Bounds
	} else {
		fn, err := objective.Lookup(config.Function)
		if err != nil {
			return JobConfig{}, err
		}
		config.Bounds = fn.Bounds
	}

	if err := config.EngineConfig().Validate(); err != nil {
		return JobConfig{}, err
	}
	return config, nil
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	var elapsed time.Duration
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	} else {
		elapsed = time.Since(job.StartTime)
	}

	// Generations per second, from completed generations
	gps := float64(0)
	if elapsed.Seconds() > 0 && job.Generation > 0 {
		gps = float64(job.Generation) / elapsed.Seconds()
	}

	response := map[string]interface{}{
		"id":             job.ID,
		"state":          job.State,
		"config":         job.Config,
		"generation":     job.Generation,
		"best":           job.Best,
		"initialBest":    job.InitialBest,
		"bestHistory":    job.BestHistory,
		"averageHistory": job.AverageHistory,
		"elapsed":        elapsed.Seconds(),
		"gps":            gps,
		"startTime":      job.StartTime,
		"endTime":        job.EndTime,
		"error":          job.Error,
	}

	writeJSON(w, http.StatusOK, response)
}

// handleGetPopulation handles GET /api/v1/jobs/:id/population.
// The response carries everything a visualizer needs for one still frame.
func (s *Server) handleGetPopulation(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	fn, err := objective.Lookup(job.Config.Function)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	individuals, _ := s.jobManager.PopulationSnapshot(jobID)

	frame := PopulationFrame{
		JobID:         job.ID,
		State:         job.State,
		Generation:    job.Generation,
		Bounds:        job.Config.Bounds,
		ContourLevels: fn.ContourLevels,
		Individuals:   individuals,
		Best:          job.Best,
		Timestamp:     time.Now(),
	}

	writeJSON(w, http.StatusOK, frame)
}

// handleCancelJob handles POST /api/v1/jobs/:id/cancel
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.jobManager.CancelJob(jobID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":    jobID,
		"state": "cancelling",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
