package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crucial707/risk-watch/internal/batch"
	"github.com/go-chi/chi/v5"
)

// BatchHandler exposes batch job submission and progress.
type BatchHandler struct {
	Orchestrator *batch.Orchestrator
}

// Create submits a new batch job. Body: {"items": ["+1555...", "@acct", ...]}.
func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Items []string `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	jobID, err := h.Orchestrator.Create(r.Context(), input.Items)
	if err != nil {
		if errors.Is(err, batch.ErrEmptyBatch) {
			JSONValidationError(w, "validation failed", map[string]string{"items": "at least one non-empty item required"}, http.StatusBadRequest)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"job_id": jobID, "status": "pending"})
}

// Status returns live progress for a job.
func (h *BatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	st, err := h.Orchestrator.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, batch.ErrJobNotFound) {
			JSONError(w, "batch job not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(st)
}

// Results returns a job's result rows with aggregate stats
// (query: sort=score|level, risk=<level filter>).
func (h *BatchHandler) Results(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	res, err := h.Orchestrator.Results(r.Context(), jobID, r.URL.Query().Get("sort"), r.URL.Query().Get("risk"))
	if err != nil {
		if errors.Is(err, batch.ErrJobNotFound) {
			JSONError(w, "batch job not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// Cancel requests cooperative cancellation of a running job.
func (h *BatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if err := h.Orchestrator.Cancel(r.Context(), jobID); err != nil {
		if errors.Is(err, batch.ErrJobNotFound) {
			JSONError(w, "batch job not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"job_id": jobID, "status": "cancel requested"})
}
