package server

import (
	"encoding/json"
	"net/http"

	"github.com/ballastfund/ballast/internal/domain"
)

// handleGetWeights returns core, tilt and effective weights per strategy
func (s *Server) handleGetWeights(w http.ResponseWriter, r *http.Request) {
	count := s.manager.StrategyCount()
	strategies := make([]domain.StrategyWeights, 0, count)
	for i := 0; i < count; i++ {
		sw, err := s.manager.StrategyAt(i)
		if err != nil {
			s.writeError(w, err)
			return
		}
		strategies = append(strategies, sw)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"asset":      s.manager.Asset(),
		"band_bps":   s.manager.RebalanceBandBps(),
		"strategies": strategies,
	})
}

// handleGetAllocation returns the full allocation snapshot
func (s *Server) handleGetAllocation(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.manager.GetAllocation()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

// handleGetDrift returns per-strategy drift in signed bps
func (s *Server) handleGetDrift(w http.ResponseWriter, r *http.Request) {
	drift, err := s.manager.PreviewDriftBps()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"band_bps":  s.manager.RebalanceBandBps(),
		"drift_bps": drift,
	})
}

// handleGetStrategies returns the strategy count and per-index state
func (s *Server) handleGetStrategies(w http.ResponseWriter, r *http.Request) {
	count := s.manager.StrategyCount()
	strategies := make([]domain.StrategyWeights, 0, count)
	for i := 0; i < count; i++ {
		sw, err := s.manager.StrategyAt(i)
		if err != nil {
			s.writeError(w, err)
			return
		}
		strategies = append(strategies, sw)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":      count,
		"strategies": strategies,
	})
}

// handleGetTotalAssets returns the pool's total managed assets
func (s *Server) handleGetTotalAssets(w http.ResponseWriter, r *http.Request) {
	total, err := s.manager.TotalAssets()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"asset":        s.manager.Asset(),
		"total_assets": total,
	})
}

type setTiltRequest struct {
	TiltBps   []int32 `json:"tilt_bps"`
	Rationale string  `json:"rationale"`
}

// handleSetTilt applies a net-zero tilt redistribution
func (s *Server) handleSetTilt(w http.ResponseWriter, r *http.Request) {
	var req setTiltRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.manager.SetTilt(caller(r), req.TiltBps, req.Rationale); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tilt_bps": s.manager.GetTiltBps(),
	})
}

type setBandRequest struct {
	BandBps uint32 `json:"band_bps"`
}

// handleSetBand updates the rebalance drift band
func (s *Server) handleSetBand(w http.ResponseWriter, r *http.Request) {
	var req setBandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.manager.SetRebalanceBandBps(caller(r), req.BandBps); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"band_bps": s.manager.RebalanceBandBps(),
	})
}

type rebalanceRequest struct {
	MaxAssetsToMove uint64 `json:"max_assets_to_move"`
	MaxLegs         int    `json:"max_legs"`
}

// handleRebalance executes an explicit rebalance under a budget/leg cap
func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	var req rebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	moved, err := s.manager.Rebalance(caller(r), req.MaxAssetsToMove, req.MaxLegs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"assets_moved": moved,
	})
}

type transferOwnerRequest struct {
	Candidate string `json:"candidate"`
}

// handleTransferOwner starts a two-phase ownership transfer
func (s *Server) handleTransferOwner(w http.ResponseWriter, r *http.Request) {
	var req transferOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.manager.TransferManagerOwner(caller(r), domain.Principal(req.Candidate)); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"pending_owner": s.manager.PendingOwner(),
	})
}

// handleAcceptOwner completes a two-phase ownership transfer
func (s *Server) handleAcceptOwner(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.AcceptManagerOwner(caller(r)); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"owner": s.manager.Owner(),
	})
}

// handleEmergencyStop engages the one-way emergency stop
func (s *Server) handleEmergencyStop(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.EmergencyStop(caller(r)); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"emergency_stopped": s.manager.IsEmergencyStopped(),
	})
}

type amountRequest struct {
	Amount uint64 `json:"amount"`
}

// handleAllocate routes a deposit into strategies
func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := s.manager.Allocate(caller(r), req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"allocated": req.Amount,
	})
}

// handleDeallocate withdraws from strategies to serve a redemption
func (s *Server) handleDeallocate(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	freed, err := s.manager.Deallocate(caller(r), req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"requested": req.Amount,
		"freed":     freed,
	})
}
