package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const (
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepServices   = "Initializing services"
)

// StartupStatus tracks initialization progress for the readiness probe.
type StartupStatus struct {
	mu    sync.RWMutex
	ready bool
	steps []StartupStep
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

type pinger interface {
	PingContext(ctx context.Context) error
}

func NewStartupStatus() *StartupStatus {
	return &StartupStatus{
		steps: []StartupStep{
			{Name: StepDatabase},
			{Name: StepMigrations},
			{Name: StepServices},
		},
	}
}

// CompleteStep marks a step as completed
func (s *StartupStatus) CompleteStep(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.steps {
		if s.steps[i].Name == name {
			s.steps[i].Completed = true
			return
		}
	}
}

// MarkReady marks the server as fully initialized
func (s *StartupStatus) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
}

func (s *StartupStatus) snapshot() (bool, []StartupStep, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	steps := make([]StartupStep, len(s.steps))
	copy(steps, s.steps)
	completed := 0
	for _, step := range steps {
		if step.Completed {
			completed++
		}
	}
	progress := 100
	if len(steps) > 0 && !s.ready {
		progress = completed * 100 / len(steps)
	}
	return s.ready, steps, progress
}

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	status *StartupStatus
	db     pinger
}

func NewHealthHandler(status *StartupStatus, db pinger) *HealthHandler {
	return &HealthHandler{status: status, db: db}
}

type readinessResponse struct {
	Ready    bool          `json:"ready"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps,omitempty"`
	Error    string        `json:"error,omitempty"`
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready is 200 only once startup finished and the database answers a ping.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ready, steps, progress := h.status.snapshot()
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, readinessResponse{Progress: progress, Steps: steps})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, readinessResponse{Progress: progress, Error: "database unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, readinessResponse{Ready: true, Progress: progress})
}
