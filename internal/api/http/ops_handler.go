package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"reservation-settlement-backend/internal/jobs"
	"reservation-settlement-backend/internal/logger"
)

// JobController runs sweeps on demand and reports their last outcome
type JobController interface {
	Names() []string
	Run(ctx context.Context, name string) (jobs.Result, error)
	LastRuns() map[string]jobs.Result
}

// Pinger reports whether the database is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// OpsHandler serves health and job-control endpoints for the cronjob process
type OpsHandler struct {
	jobs JobController
	db   Pinger
}

// NewOpsHandler creates a new ops handler
func NewOpsHandler(jobs JobController, db Pinger) *OpsHandler {
	return &OpsHandler{
		jobs: jobs,
		db:   db,
	}
}

type jobStatus struct {
	Name    string       `json:"name"`
	LastRun *jobs.Result `json:"last_run,omitempty"`
}

// HandleHealth reports 200 when the database answers a ping within two seconds
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		logger.Warn("Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleListJobs lists the known jobs with their last result
func (h *OpsHandler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	last := h.jobs.LastRuns()
	out := make([]jobStatus, 0, len(last))
	for _, name := range h.jobs.Names() {
		st := jobStatus{Name: name}
		if res, ok := last[name]; ok {
			st.LastRun = &res
		}
		out = append(out, st)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRunJob runs one job synchronously and returns its result
func (h *OpsHandler) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	known := false
	for _, n := range h.jobs.Names() {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job: " + name})
		return
	}

	logger.Info("Manual job run requested", "job", name, "remote_addr", r.RemoteAddr)
	res, err := h.jobs.Run(r.Context(), name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// NewRouter registers the ops endpoints on a fresh router
func NewRouter(jobs JobController, db Pinger) *mux.Router {
	handler := NewOpsHandler(jobs, db)
	router := mux.NewRouter()
	router.HandleFunc("/healthz", handler.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/jobs", handler.HandleListJobs).Methods(http.MethodGet)
	router.HandleFunc("/jobs/{name}/run", handler.HandleRunJob).Methods(http.MethodPost)
	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
