package manager

import (
	"fmt"

	"github.com/ballastfund/ballast/internal/domain"
)

// Read-only views for tooling and the HTTP surface. Views do not take
// the execution guard; state reads are protected by the read lock and
// strategy balance reads are side-effect free.

// GetEffectiveWeights returns the effective weight of each strategy in
// instance order
func (m *Manager) GetEffectiveWeights() []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uint32, len(m.instances))
	for i, inst := range m.instances {
		out[i] = inst.effectiveBps
	}
	return out
}

// GetCoreWeights returns the immutable core weight of each strategy
func (m *Manager) GetCoreWeights() []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uint32, len(m.instances))
	for i, inst := range m.instances {
		out[i] = inst.coreBps
	}
	return out
}

// GetTiltBps returns the current tilt of each strategy
func (m *Manager) GetTiltBps() []int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int32, len(m.instances))
	for i, inst := range m.instances {
		out[i] = inst.tiltBps
	}
	return out
}

// StrategyCount returns the number of strategy instances
func (m *Manager) StrategyCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.instances)
}

// StrategyAt returns the weight state of the strategy at the given
// instance index
func (m *Manager) StrategyAt(index int) (domain.StrategyWeights, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 || index >= len(m.instances) {
		return domain.StrategyWeights{}, fmt.Errorf("strategy index %d out of range [0, %d)", index, len(m.instances))
	}
	inst := m.instances[index]
	return domain.StrategyWeights{
		ID:           inst.strategy.ID(),
		Impl:         inst.impl,
		CoreBps:      inst.coreBps,
		TiltBps:      inst.tiltBps,
		EffectiveBps: inst.effectiveBps,
		Liquid:       inst.liquid,
	}, nil
}

// TotalAssets returns the pool's total managed assets: the sum over
// strategies plus any balance held by the manager outside strategies
func (m *Manager) TotalAssets() (uint64, error) {
	m.mu.RLock()
	instances := m.instances
	total := m.unallocated
	m.mu.RUnlock()

	for _, inst := range instances {
		a, err := inst.strategy.TotalAssets()
		if err != nil {
			return 0, fmt.Errorf("strategy %s TotalAssets: %w", inst.strategy.ID(), err)
		}
		total += a
	}
	return total, nil
}

// PreviewDriftBps returns each strategy's current drift from its
// effective weight in signed basis points (positive = overweight)
func (m *Manager) PreviewDriftBps() ([]int32, error) {
	snapshot, err := m.buildSnapshot()
	if err != nil {
		return nil, err
	}
	out := make([]int32, len(snapshot.Strategies))
	for i, row := range snapshot.Strategies {
		out[i] = row.DriftBps
	}
	return out, nil
}

// GetAllocation returns the full allocation snapshot
func (m *Manager) GetAllocation() (domain.AllocationSnapshot, error) {
	return m.buildSnapshot()
}

// Owner returns the current manager owner
func (m *Manager) Owner() domain.Principal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owner
}

// PendingOwner returns the pending manager owner, if any
func (m *Manager) PendingOwner() domain.Principal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pendingOwner
}

// IsEmergencyStopped reports whether the one-way emergency flag is set
func (m *Manager) IsEmergencyStopped() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.emergencyStopped
}

// RebalanceBandBps returns the current drift band
func (m *Manager) RebalanceBandBps() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bandParams.RebalanceBandBps
}

// Asset returns the managed asset
func (m *Manager) Asset() domain.Asset {
	return m.asset
}
