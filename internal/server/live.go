package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cwbudde/gafuncmin/internal/engine"
	"github.com/cwbudde/gafuncmin/internal/objective"
)

// PopulationFrame is one WebSocket message: everything a live visualizer
// needs to scatter the population over the contour plot without touching
// engine state.
type PopulationFrame struct {
	JobID         string              `json:"jobId"`
	State         JobState            `json:"state"`
	Generation    int                 `json:"generation"`
	Bounds        objective.Bounds    `json:"bounds"`
	ContourLevels []float64           `json:"contourLevels"`
	Individuals   []engine.Individual `json:"individuals"`
	Best          *engine.Individual  `json:"best,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
}

var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 8192,
	CheckOrigin: func(r *http.Request) bool {
		// The API already allows any origin via CORS; mirror that here.
		return true
	},
}

// handleJobLive upgrades to WebSocket and streams population frames for a
// job, one frame per broadcast progress event.
func (s *Server) handleJobLive(w http.ResponseWriter, r *http.Request, jobID string) {
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

	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "jobID", jobID, "error", err)
		return
	}
	defer conn.Close()

	slog.Debug("WebSocket client connected", "jobID", jobID)

	eventChan := s.jobManager.broadcaster.Subscribe(jobID)
	defer s.jobManager.broadcaster.Unsubscribe(jobID, eventChan)

	// Drain the read side so close frames from the client are noticed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Send the current snapshot immediately so late joiners see state
	// before the next generation completes.
	if err := s.writePopulationFrame(conn, jobID, fn); err != nil {
		slog.Debug("WebSocket initial frame failed", "jobID", jobID, "error", err)
		return
	}

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-clientGone:
			slog.Debug("WebSocket client disconnected", "jobID", jobID)
			return

		case _, ok := <-eventChan:
			if !ok {
				return
			}
			if err := s.writePopulationFrame(conn, jobID, fn); err != nil {
				slog.Debug("WebSocket write failed", "jobID", jobID, "error", err)
				return
			}

		case <-pingTicker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// writePopulationFrame assembles the latest snapshot for a job and writes
// it as one JSON message.
func (s *Server) writePopulationFrame(conn *websocket.Conn, jobID string, fn objective.Function) error {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		return &websocket.CloseError{Code: websocket.CloseGoingAway}
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

	return conn.WriteJSON(frame)
}
