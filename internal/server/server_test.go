package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestServer_CreateJob(t *testing.T) {
	s := NewServer(":8080", nil)

	body, _ := json.Marshal(map[string]interface{}{
		"function":       "sphere",
		"populationSize": 20,
		"generations":    5,
		"seed":           42,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.handleCreateJob(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if job.ID == "" {
		t.Error("Job ID should be set")
	}
	if job.Config.Function != "sphere" {
		t.Errorf("Function = %s, want sphere", job.Config.Function)
	}
	// Defaults are filled for absent fields
	if job.Config.MutationRate != 0.1 {
		t.Errorf("MutationRate = %f, want default 0.1", job.Config.MutationRate)
	}
	// Bounds resolve from the registry
	if job.Config.Bounds.Min != -10 || job.Config.Bounds.Max != 10 {
		t.Errorf("Bounds = %+v, want sphere defaults", job.Config.Bounds)
	}
}

func TestServer_CreateJobExplicitZeroMutation(t *testing.T) {
	s := NewServer(":8080", nil)

	body := []byte(`{"function":"sphere","populationSize":10,"generations":2,"mutationRate":0}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	w := httptest.NewRecorder()

	s.handleCreateJob(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var job Job
	json.NewDecoder(w.Body).Decode(&job)
	if job.Config.MutationRate != 0 {
		t.Errorf("Explicit zero mutation rate was overridden to %f", job.Config.MutationRate)
	}
}

func TestServer_CreateJobRejectsInvalidConfig(t *testing.T) {
	s := NewServer(":8080", nil)

	cases := []string{
		`{"function":"unknown"}`,
		`{"populationSize":-5}`,
		`{"mutationRate":1.5}`,
		`{"bounds":{"min":5,"max":-5}}`,
		`not json`,
	}

	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader([]byte(body)))
		w := httptest.NewRecorder()

		s.handleCreateJob(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Body %q: expected 400, got %d", body, w.Code)
		}
	}

	if got := len(s.jobManager.ListJobs()); got != 0 {
		t.Errorf("No jobs should be created from invalid requests, got %d", got)
	}
}

func TestServer_ListFunctions(t *testing.T) {
	s := NewServer(":8080", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/functions", nil)
	w := httptest.NewRecorder()

	s.handleListFunctions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var infos []functionInfo
	if err := json.NewDecoder(w.Body).Decode(&infos); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(infos) != 4 {
		t.Fatalf("Expected 4 functions, got %d", len(infos))
	}
	for _, info := range infos {
		if len(info.ContourLevels) == 0 {
			t.Errorf("Function %s has no contour levels", info.ID)
		}
	}
}

func TestServer_GetJobStatus(t *testing.T) {
	s := NewServer(":8080", nil)
	job := s.jobManager.CreateJob(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/status", nil)
	w := httptest.NewRecorder()

	s.handleJobsWithID(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var status map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if status["id"] != job.ID {
		t.Errorf("id = %v, want %s", status["id"], job.ID)
	}
	if status["state"] != string(StatePending) {
		t.Errorf("state = %v, want pending", status["state"])
	}
}

func TestServer_GetJobStatusNotFound(t *testing.T) {
	s := NewServer(":8080", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nope/status", nil)
	w := httptest.NewRecorder()

	s.handleJobsWithID(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestServer_PopulationEndpoint(t *testing.T) {
	s := NewServer(":8080", nil)
	job := s.jobManager.CreateJob(testConfig())

	// Run the job to completion so a population snapshot exists
	if err := runJob(context.Background(), s.jobManager, nil, job.ID); err != nil {
		t.Fatalf("runJob failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/population", nil)
	w := httptest.NewRecorder()

	s.handleJobsWithID(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var frame PopulationFrame
	if err := json.NewDecoder(w.Body).Decode(&frame); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(frame.Individuals) != 20 {
		t.Errorf("Individuals = %d, want 20", len(frame.Individuals))
	}
	if frame.Generation != 10 {
		t.Errorf("Generation = %d, want 10", frame.Generation)
	}
	if len(frame.ContourLevels) == 0 {
		t.Error("ContourLevels should be populated")
	}
	if frame.Best == nil {
		t.Error("Best should be set")
	}
}

func TestServer_CancelEndpoint(t *testing.T) {
	s := NewServer(":8080", nil)

	config := testConfig()
	config.Generations = 100000
	config.StepIntervalMs = 10
	job := s.jobManager.CreateJob(config)

	done := make(chan struct{})
	ctxJob, cancel := context.WithCancel(context.Background())
	s.jobManager.RegisterCancel(job.ID, cancel)
	go func() {
		defer close(done)
		runJob(ctxJob, s.jobManager, nil, job.ID)
	}()

	time.Sleep(50 * time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+job.ID+"/cancel", nil)
	w := httptest.NewRecorder()
	s.handleJobsWithID(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Worker did not stop after cancel")
	}

	updated, _ := s.jobManager.GetJob(job.ID)
	if updated.State != StateCancelled {
		t.Errorf("State = %s, want cancelled", updated.State)
	}
}

func TestServer_IndexOnlyAtRoot(t *testing.T) {
	s := NewServer(":8080", nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.handleIndex(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Root should respond 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/somewhere", nil)
	w = httptest.NewRecorder()
	s.handleIndex(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Non-root path should 404, got %d", w.Code)
	}
}
