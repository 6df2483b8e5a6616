package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/crucial707/risk-watch/internal/collectors"
	"github.com/crucial707/risk-watch/internal/models"
	"github.com/crucial707/risk-watch/internal/repo"
	"github.com/crucial707/risk-watch/internal/risk"
)

// VerifyHandler serves one-shot risk verification with a durable TTL cache
// in front of the evidence collectors.
type VerifyHandler struct {
	Cache     *repo.AssessmentCacheRepo
	Collector *collectors.Collector

	// TTL is how long a cached assessment stays servable (default 1h).
	TTL time.Duration

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (h *VerifyHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *VerifyHandler) ttl() time.Duration {
	if h.TTL > 0 {
		return h.TTL
	}
	return time.Hour
}

// Verify scores an identifier on demand.
// Body: {"identifier": "...", "force_refresh": false}. A cached assessment
// is served unless expired or force_refresh is set.
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Identifier   string `json:"identifier"`
		ForceRefresh bool   `json:"force_refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Identifier == "" {
		JSONError(w, "invalid JSON or missing identifier", http.StatusBadRequest)
		return
	}

	now := h.now()
	if !input.ForceRefresh {
		cached, err := h.Cache.Get(r.Context(), input.Identifier, now)
		if err != nil {
			JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
			return
		}
		if cached != nil {
			writeAssessment(w, cached, true)
			return
		}
	}

	kind := models.KindPhone
	if input.Identifier[0] != '+' {
		kind = models.KindProfile
	}
	obs, err := h.Collector.Collect(r.Context(), input.Identifier, kind)
	if err != nil {
		JSONError(w, "evidence sources unavailable", http.StatusBadGateway)
		return
	}
	assessment := risk.Aggregate(input.Identifier, obs.Evidence)

	// Serving the fresh result matters more than caching it.
	if err := h.Cache.Put(r.Context(), input.Identifier, assessment, now.Add(h.ttl())); err != nil {
		slog.Warn("assessment cache write failed", "identifier", input.Identifier, "error", err)
	}

	writeAssessment(w, &assessment, false)
}

func writeAssessment(w http.ResponseWriter, a *risk.Assessment, cached bool) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		risk.Assessment
		Cached bool `json:"cached"`
	}{Assessment: *a, Cached: cached})
}
