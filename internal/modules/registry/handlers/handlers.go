// Package handlers provides HTTP handlers for the implementation registry.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/modules/registry"
)

// Handler handles registry HTTP requests
type Handler struct {
	repo *registry.Repository
	log  zerolog.Logger
}

// NewHandler creates a new registry handler
func NewHandler(repo *registry.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "registry").Logger(),
	}
}

// HandleGetImplementations handles GET /api/registry/implementations
func (h *Handler) HandleGetImplementations(w http.ResponseWriter, r *http.Request) {
	impls, err := h.repo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query implementations")
		h.writeError(w, http.StatusInternalServerError, "failed to query implementations")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":           len(impls),
		"implementations": impls,
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
