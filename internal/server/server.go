// Package server provides the HTTP server and routing for ballast.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/domain"
	"github.com/ballastfund/ballast/internal/events"
	"github.com/ballastfund/ballast/internal/manager"
	"github.com/ballastfund/ballast/internal/modules/audit"
	audithandlers "github.com/ballastfund/ballast/internal/modules/audit/handlers"
	"github.com/ballastfund/ballast/internal/modules/registry"
	registryhandlers "github.com/ballastfund/ballast/internal/modules/registry/handlers"
	"github.com/ballastfund/ballast/internal/modules/risk"
	riskhandlers "github.com/ballastfund/ballast/internal/modules/risk/handlers"
)

// CallerHeader carries the caller principal on mutating requests.
// Authorization itself is enforced by the manager, not the router.
const CallerHeader = "X-Ballast-Caller"

// Config holds server configuration
type Config struct {
	Port int
}

// Server is the HTTP API surface over the manager and its modules
type Server struct {
	router     chi.Router
	httpServer *http.Server
	manager    *manager.Manager
	log        zerolog.Logger
}

// New creates a new server with all routes wired
func New(
	cfg Config,
	mgr *manager.Manager,
	auditRepo *audit.Repository,
	riskRepo *risk.SnapshotRepository,
	registryRepo *registry.Repository,
	bus *events.Bus,
	log zerolog.Logger,
) *Server {
	s := &Server{
		manager: mgr,
		log:     log.With().Str("component", "server").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", CallerHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	systemHandlers := NewSystemHandlers(log)
	r.Get("/api/system/status", systemHandlers.HandleStatus)

	streamHandler := NewEventsStreamHandler(bus, log)
	r.Get("/api/events/stream", streamHandler.ServeHTTP)

	r.Route("/api/manager", func(r chi.Router) {
		r.Get("/weights", s.handleGetWeights)
		r.Get("/allocation", s.handleGetAllocation)
		r.Get("/drift", s.handleGetDrift)
		r.Get("/strategies", s.handleGetStrategies)
		r.Get("/total-assets", s.handleGetTotalAssets)

		r.Post("/tilt", s.handleSetTilt)
		r.Post("/band", s.handleSetBand)
		r.Post("/rebalance", s.handleRebalance)
		r.Post("/owner/transfer", s.handleTransferOwner)
		r.Post("/owner/accept", s.handleAcceptOwner)
		r.Post("/emergency-stop", s.handleEmergencyStop)
	})

	r.Route("/api/fund", func(r chi.Router) {
		r.Post("/allocate", s.handleAllocate)
		r.Post("/deallocate", s.handleDeallocate)
	})

	auditHandler := audithandlers.NewHandler(auditRepo, log)
	r.Get("/api/audit/events", auditHandler.HandleGetEvents)

	riskHandler := riskhandlers.NewHandler(riskRepo, log)
	r.Get("/api/risk/current", riskHandler.HandleGetCurrent)
	r.Get("/api/risk/history", riskHandler.HandleGetHistory)

	registryHandler := registryhandlers.NewHandler(registryRepo, log)
	r.Get("/api/registry/implementations", registryHandler.HandleGetImplementations)

	s.router = r
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the router for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "ballast",
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response with a status derived from
// the error class
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFund),
		errors.Is(err, domain.ErrNotManagerOwner),
		errors.Is(err, domain.ErrNotPendingOwner):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrTiltOutOfRange),
		errors.Is(err, domain.ErrTiltStepExceeded),
		errors.Is(err, domain.ErrTiltSumNotZero),
		errors.Is(err, domain.ErrBandOutOfRange),
		errors.Is(err, domain.ErrLengthMismatch),
		errors.Is(err, domain.ErrZeroArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrCooldownNotElapsed):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrReentrantCall):
		status = http.StatusConflict
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// caller extracts the caller principal from the request header
func caller(r *http.Request) domain.Principal {
	return domain.Principal(r.Header.Get(CallerHeader))
}
