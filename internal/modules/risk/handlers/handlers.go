// Package handlers provides HTTP handlers for the risk module.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/modules/risk"
)

const defaultHistoryLimit = 50

// Handler handles risk HTTP requests
type Handler struct {
	repo *risk.SnapshotRepository
	log  zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(repo *risk.SnapshotRepository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "risk").Logger(),
	}
}

// HandleGetCurrent handles GET /api/risk/current
func (h *Handler) HandleGetCurrent(w http.ResponseWriter, r *http.Request) {
	snap, err := h.repo.Latest()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query latest risk snapshot")
		h.writeError(w, http.StatusInternalServerError, "failed to query risk snapshot")
		return
	}
	if snap == nil {
		h.writeError(w, http.StatusNotFound, "no risk snapshot recorded yet")
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// HandleGetHistory handles GET /api/risk/history.
// Query params: limit (default 50).
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	snaps, err := h.repo.Recent(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query risk snapshots")
		h.writeError(w, http.StatusInternalServerError, "failed to query risk snapshots")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(snaps),
		"snapshots": snaps,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
