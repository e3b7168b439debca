// Package handlers provides HTTP handlers for the audit module.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/events"
	"github.com/ballastfund/ballast/internal/modules/audit"
)

const defaultLimit = 100

// Handler handles audit HTTP requests
type Handler struct {
	repo *audit.Repository
	log  zerolog.Logger
}

// NewHandler creates a new audit handler
func NewHandler(repo *audit.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "audit").Logger(),
	}
}

// HandleGetEvents handles GET /api/audit/events.
// Query params: limit (default 100), type (optional event type filter).
func (h *Handler) HandleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	var records []audit.Record
	var err error
	if eventType := r.URL.Query().Get("type"); eventType != "" {
		records, err = h.repo.ByType(events.EventType(eventType), limit)
	} else {
		records, err = h.repo.Recent(limit)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query audit events")
		h.writeError(w, http.StatusInternalServerError, "failed to query audit events")
		return
	}

	count, err := h.repo.Count()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count audit events")
		h.writeError(w, http.StatusInternalServerError, "failed to count audit events")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":  count,
		"events": records,
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
