package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/crucial707/risk-watch/internal/models"
	"github.com/crucial707/risk-watch/internal/repo"
	"github.com/crucial707/risk-watch/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// WatchlistHandler handles watchlist CRUD, timelines, and manual checks.
type WatchlistHandler struct {
	Targets   *repo.TargetRepo
	Snapshots *repo.SnapshotRepo
	Scheduler *scheduler.Scheduler
}

// Add puts a target on the watchlist.
// Body: {"identifier": "...", "kind": "phone|profile", "frequency": "hourly|daily|weekly"}.
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Identifier string `json:"identifier"`
		Kind       string `json:"kind"`
		Frequency  string `json:"frequency"`
		Owner      string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	fields := make(map[string]string)
	if input.Identifier == "" {
		fields["identifier"] = "required"
	}
	if !models.ValidKind(input.Kind) {
		fields["kind"] = "must be phone or profile"
	}
	if input.Frequency == "" {
		input.Frequency = models.FreqDaily
	} else if !models.ValidFrequency(input.Frequency) {
		fields["frequency"] = "must be hourly, daily, or weekly"
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}
	if input.Owner == "" {
		input.Owner = "default"
	}

	t, err := h.Targets.Create(r.Context(), uuid.NewString(), input.Owner, input.Identifier, input.Kind, input.Frequency)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateTarget) {
			JSONError(w, "target is already on the watchlist", http.StatusConflict)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(t)
}

// List returns an owner's watchlist (query: owner, limit, offset).
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		owner = "default"
	}
	limit, offset := pageParams(r, 50, 100)

	list, err := h.Targets.List(r.Context(), owner, limit, offset)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.Target{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// Remove deletes a watchlist entry along with its snapshots and alerts.
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	watchID := chi.URLParam(r, "watchID")
	if err := h.Targets.Delete(r.Context(), watchID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			JSONError(w, "watchlist entry not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Timeline returns a target's snapshots, most recent first.
func (h *WatchlistHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	watchID := chi.URLParam(r, "watchID")
	t, err := h.Targets.GetByWatchID(r.Context(), watchID)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if t == nil {
		JSONError(w, "watchlist entry not found", http.StatusNotFound)
		return
	}

	limit, offset := pageParams(r, 50, 200)
	snaps, err := h.Snapshots.ListByTarget(r.Context(), t.ID, limit, offset)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if snaps == nil {
		snaps = []models.Snapshot{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snaps)
}

// Trigger runs a manual check for a target right now. While a scheduled or
// manual run is already in flight for the same target, the request is
// rejected with 409 rather than run concurrently.
func (h *WatchlistHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	watchID := chi.URLParam(r, "watchID")
	t, err := h.Targets.GetByWatchID(r.Context(), watchID)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if t == nil {
		JSONError(w, "watchlist entry not found", http.StatusNotFound)
		return
	}

	result, err := h.Scheduler.TriggerCheck(r.Context(), t)
	if err != nil {
		if errors.Is(err, scheduler.ErrCheckInFlight) {
			JSONError(w, "a check for this target is already running", http.StatusConflict)
			return
		}
		JSONError(w, "check failed: evidence sources unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// pageParams reads limit/offset query params with a default and a cap.
func pageParams(r *http.Request, def, max int) (limit, offset int) {
	limit = def
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= max {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
