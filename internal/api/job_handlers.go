// Handlers for the watched job endpoints.

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListJobs returns the current projection of every watched job.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.registry.Snapshots())
}

// handleWatchJob starts watching a remote job. Watching an already watched
// job is a no-op that returns its current projection.
func (s *Server) handleWatchJob(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		JobID string `json:"jobId"`
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.JobID == "" {
		RespondWithError(w, http.StatusBadRequest, "jobId is required")
		return
	}

	p, err := s.registry.Watch(payload.JobID, payload.Label)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusCreated, p.Status())
}

func (s *Server) handleUnwatchJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if err := s.registry.Unwatch(jobID); err != nil {
		RespondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "unwatched"})
}

func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	p, ok := s.registry.Get(jobID)
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Job is not being watched")
		return
	}
	RespondWithJSON(w, http.StatusOK, p.Status())
}

// handleRecreateJob restarts a failed or stalled job and resets its local
// projection so stale progress never bleeds into the new run.
func (s *Server) handleRecreateJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	p, ok := s.registry.Get(jobID)
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Job is not being watched")
		return
	}
	if err := p.Recreate(); err != nil {
		RespondWithError(w, http.StatusBadGateway, "Failed to recreate job: "+err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, p.Status())
}
