package registry

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/domain"
)

// Service answers registry queries from the database. It implements
// domain.StrategyRegistry.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new registry service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "registry").Logger(),
	}
}

// IsActive reports whether the implementation is registered and active
func (s *Service) IsActive(impl domain.ImplementationID) (bool, error) {
	rec, err := s.repo.Get(impl)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.Active, nil
}

// SupportsAsset reports whether the implementation supports the asset
func (s *Service) SupportsAsset(impl domain.ImplementationID, asset domain.Asset) (bool, error) {
	rec, err := s.repo.Get(impl)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	return rec.SupportsAsset(asset), nil
}

// IsLiquid reports the liquidity classification of the implementation
func (s *Service) IsLiquid(impl domain.ImplementationID) (bool, error) {
	rec, err := s.repo.Get(impl)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, fmt.Errorf("implementation %s not registered", impl)
	}
	return rec.Liquid, nil
}

// InMemory is a map-backed StrategyRegistry for tests and the sandbox
type InMemory struct {
	mu    sync.RWMutex
	impls map[domain.ImplementationID]Implementation
}

// NewInMemory creates an empty in-memory registry
func NewInMemory() *InMemory {
	return &InMemory{impls: make(map[domain.ImplementationID]Implementation)}
}

// Register adds or replaces an implementation
func (r *InMemory) Register(impl Implementation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.impls[impl.ID] = impl
}

// IsActive reports whether the implementation is registered and active
func (r *InMemory) IsActive(impl domain.ImplementationID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.impls[impl]
	return ok && rec.Active, nil
}

// SupportsAsset reports whether the implementation supports the asset
func (r *InMemory) SupportsAsset(impl domain.ImplementationID, asset domain.Asset) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.impls[impl]
	if !ok {
		return false, nil
	}
	return rec.SupportsAsset(asset), nil
}

// IsLiquid reports the liquidity classification of the implementation
func (r *InMemory) IsLiquid(impl domain.ImplementationID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.impls[impl]
	if !ok {
		return false, fmt.Errorf("implementation %s not registered", impl)
	}
	return rec.Liquid, nil
}
