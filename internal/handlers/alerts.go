package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/crucial707/risk-watch/internal/models"
	"github.com/crucial707/risk-watch/internal/repo"
	"github.com/go-chi/chi/v5"
)

// AlertHandler serves the alert log.
type AlertHandler struct {
	Repo *repo.AlertRepo
}

// List returns alerts, newest first (query: unread=true, limit, offset).
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit, offset := pageParams(r, 50, 200)

	list, err := h.Repo.List(r.Context(), unreadOnly, limit, offset)
	if err != nil {
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []models.Alert{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// MarkRead sets an alert's read flag.
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, h.Repo.MarkRead)
}

// Dismiss sets an alert's dismissed flag. Dismissing does not mark it read.
func (h *AlertHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, h.Repo.Dismiss)
}

func (h *AlertHandler) setFlag(w http.ResponseWriter, r *http.Request, update func(context.Context, int) error) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		JSONError(w, "invalid alert id", http.StatusBadRequest)
		return
	}

	if err := update(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			JSONError(w, "alert not found", http.StatusNotFound)
			return
		}
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
