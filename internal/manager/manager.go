// Package manager implements the capital allocation manager: a governed
// set of target weights over a fixed pool of yield strategies, with
// deposit routing, withdrawal routing and explicit rebalancing.
package manager

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/domain"
	"github.com/ballastfund/ballast/internal/events"
)

// Config holds the immutable collaborators and parameters a manager is
// constructed with. Strategies are bound later via Initialize.
type Config struct {
	Asset      domain.Asset
	Registry   domain.StrategyRegistry
	RiskEngine domain.RiskEngine
	TiltParams domain.TiltParameters
	BandParams domain.RebalanceBandParameters

	// Fund is the only principal allowed to call Allocate, Deallocate
	// and EmergencyStop.
	Fund domain.Principal

	// Owner is the initial manager owner (tilt/band/rebalance gate).
	Owner domain.Principal

	// Now overrides the clock for tests. Defaults to time.Now.
	Now func() time.Time
}

// Manager routes capital across a fixed set of strategy instances
// according to effective weights (core + tilt) and a drift band.
//
// Every mutating operation runs as a single atomic unit: inputs are
// validated up front and internal state is committed only after all
// collaborator calls succeed. A non-reentrant execution guard rejects
// collaborator callbacks into the manager while an operation is in
// flight.
type Manager struct {
	log zerolog.Logger
	bus *events.Bus

	asset      domain.Asset
	registry   domain.StrategyRegistry
	riskEngine domain.RiskEngine
	tiltParams domain.TiltParameters
	bandParams domain.RebalanceBandParameters

	fund         domain.Principal
	owner        domain.Principal
	pendingOwner domain.Principal

	// self is the principal strategies see as the receiver when capital
	// moves between strategies during a rebalance.
	self domain.Principal

	instances []*strategyInstance

	initialized      bool
	emergencyStopped bool

	// unallocated is the balance held by the manager outside any
	// strategy (rebalance deposit shortfalls). Counted in total managed
	// assets for target computation.
	unallocated uint64

	lastTiltUpdateAt time.Time
	lastBandUpdateAt time.Time

	now func() time.Time

	// mu guards reads vs. commits so the HTTP views can run while the
	// single mutating operation is executing.
	mu sync.RWMutex

	// executing is the non-reentrant execution guard.
	executing atomic.Bool
}

// New creates an uninitialized manager
func New(cfg Config, bus *events.Bus, log zerolog.Logger) *Manager {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		log:        log.With().Str("component", "manager").Str("asset", string(cfg.Asset)).Logger(),
		bus:        bus,
		asset:      cfg.Asset,
		registry:   cfg.Registry,
		riskEngine: cfg.RiskEngine,
		tiltParams: cfg.TiltParams,
		bandParams: cfg.BandParams,
		fund:       cfg.Fund,
		owner:      cfg.Owner,
		self:       domain.Principal("manager:" + string(cfg.Asset)),
		now:        now,
	}
}

// enter acquires the execution guard. A held guard means a collaborator
// called back into the manager mid-operation; that call is rejected.
func (m *Manager) enter() error {
	if !m.executing.CompareAndSwap(false, true) {
		return domain.ErrReentrantCall
	}
	return nil
}

func (m *Manager) exit() {
	m.executing.Store(false)
}

// Initialize binds one strategy instance per provided strategy and sets
// all tilts to zero. Core weights must each be within
// [MinCoreWeightBps, 10000] and sum to exactly 10000. Each strategy's
// implementation must be active in the registry, support the managed
// asset, and appear at most once.
func (m *Manager) Initialize(strategies []domain.Strategy, coreWeightsBps []uint32) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()

	if m.initialized {
		return domain.ErrAlreadyInitialized
	}
	if m.registry == nil || m.riskEngine == nil || m.asset == "" || m.fund == "" || m.owner == "" {
		return domain.ErrMissingReference
	}
	if len(strategies) == 0 {
		return fmt.Errorf("%w: no strategies provided", domain.ErrMissingReference)
	}
	if len(strategies) != len(coreWeightsBps) {
		return fmt.Errorf("%w: %d strategies vs %d weights", domain.ErrLengthMismatch, len(strategies), len(coreWeightsBps))
	}

	var sum uint64
	for _, w := range coreWeightsBps {
		if w < domain.MinCoreWeightBps || w > domain.WeightScale {
			return fmt.Errorf("%w: core weight %d", domain.ErrWeightOutOfBounds, w)
		}
		sum += uint64(w)
	}
	if sum != uint64(domain.WeightScale) {
		return fmt.Errorf("%w: got %d", domain.ErrWeightSumMismatch, sum)
	}

	seen := make(map[domain.ImplementationID]struct{}, len(strategies))
	instances := make([]*strategyInstance, 0, len(strategies))
	for i, strat := range strategies {
		if strat == nil {
			return fmt.Errorf("%w: strategy at index %d is nil", domain.ErrMissingReference, i)
		}
		impl := strat.Implementation()
		if _, dup := seen[impl]; dup {
			return fmt.Errorf("%w: %s", domain.ErrImplementationReused, impl)
		}
		seen[impl] = struct{}{}

		active, err := m.registry.IsActive(impl)
		if err != nil {
			return fmt.Errorf("registry IsActive(%s): %w", impl, err)
		}
		if !active {
			return fmt.Errorf("%w: %s is not active", domain.ErrImplementationDenied, impl)
		}
		supports, err := m.registry.SupportsAsset(impl, m.asset)
		if err != nil {
			return fmt.Errorf("registry SupportsAsset(%s): %w", impl, err)
		}
		if !supports {
			return fmt.Errorf("%w: %s does not support asset %s", domain.ErrImplementationDenied, impl, m.asset)
		}
		liquid, err := m.registry.IsLiquid(impl)
		if err != nil {
			return fmt.Errorf("registry IsLiquid(%s): %w", impl, err)
		}

		instances = append(instances, &strategyInstance{
			strategy:     strat,
			impl:         impl,
			coreBps:      coreWeightsBps[i],
			tiltBps:      0,
			effectiveBps: coreWeightsBps[i],
			liquid:       liquid,
		})
	}

	if err := checkWeightSum(instances); err != nil {
		return err
	}

	// Classify the prospective allocation before anything is committed.
	// A failing collaborator aborts initialization and the manager stays
	// uninitialized, so the call can simply be retried.
	snapshot, err := m.snapshotOver(instances, 0)
	if err != nil {
		return fmt.Errorf("building allocation snapshot: %w", err)
	}
	tier, score, err := m.classifyRisk(snapshot)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.instances = instances
	m.initialized = true
	m.mu.Unlock()

	for _, inst := range instances {
		m.publish(&events.StrategyAddedData{
			StrategyID:     string(inst.strategy.ID()),
			Implementation: string(inst.impl),
			CoreWeightBps:  inst.coreBps,
			Liquid:         inst.liquid,
		})
	}
	m.publish(&events.RiskRefreshedData{Tier: string(tier), Score: score})

	m.log.Info().Int("strategies", len(instances)).Msg("Manager initialized")
	return nil
}

// EmergencyStop permanently disables capital deployment. Only the Fund
// may call it. A second call is a no-op. Withdrawal paths stay live so
// redemptions can still be served.
func (m *Manager) EmergencyStop(caller domain.Principal) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()

	if caller != m.fund {
		return domain.ErrNotFund
	}

	m.mu.Lock()
	already := m.emergencyStopped
	m.emergencyStopped = true
	m.mu.Unlock()

	if already {
		return nil
	}

	m.publish(&events.EmergencyStoppedData{StoppedBy: string(caller)})
	m.log.Warn().Msg("Emergency stop engaged")
	return nil
}

// TransferManagerOwner starts a two-phase ownership transfer
func (m *Manager) TransferManagerOwner(caller, candidate domain.Principal) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()

	if caller != m.owner {
		return domain.ErrNotManagerOwner
	}
	if candidate == "" {
		return fmt.Errorf("%w: empty candidate", domain.ErrMissingReference)
	}

	m.mu.Lock()
	m.pendingOwner = candidate
	m.mu.Unlock()

	m.publish(&events.OwnerTransferStartedData{
		CurrentOwner: string(m.owner),
		PendingOwner: string(candidate),
	})
	return nil
}

// AcceptManagerOwner completes an ownership transfer. Only the pending
// candidate may call it.
func (m *Manager) AcceptManagerOwner(caller domain.Principal) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()

	if m.pendingOwner == "" || caller != m.pendingOwner {
		return domain.ErrNotPendingOwner
	}

	m.mu.Lock()
	previous := m.owner
	m.owner = caller
	m.pendingOwner = ""
	m.mu.Unlock()

	m.publish(&events.OwnerTransferCompletedData{
		PreviousOwner: string(previous),
		NewOwner:      string(caller),
	})
	m.log.Info().Str("new_owner", string(caller)).Msg("Manager owner transfer completed")
	return nil
}

// RefreshRiskNow recomputes and republishes the risk classification
// outside of any weight-changing operation. Used by the periodic
// refresh job.
func (m *Manager) RefreshRiskNow() error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()

	if !m.initialized {
		return domain.ErrNotInitialized
	}
	return m.refreshRisk()
}

// publish emits an audit event when a bus is wired
func (m *Manager) publish(data events.EventData) {
	if m.bus != nil {
		m.bus.Publish(data)
	}
}

// refreshRisk snapshots the committed state, hands it to the risk
// engine and publishes the classification. Used after capital-moving
// operations, where completed strategy transfers cannot be unwound.
func (m *Manager) refreshRisk() error {
	snapshot, err := m.buildSnapshot()
	if err != nil {
		return fmt.Errorf("building allocation snapshot: %w", err)
	}
	tier, score, err := m.classifyRisk(snapshot)
	if err != nil {
		return err
	}
	m.publish(&events.RiskRefreshedData{Tier: string(tier), Score: score})
	return nil
}

// classifyRisk hands a snapshot to the risk engine without publishing,
// so weight-changing operations can vet the prospective state before
// committing it.
func (m *Manager) classifyRisk(snapshot domain.AllocationSnapshot) (domain.RiskTier, float64, error) {
	tier, score, err := m.riskEngine.RefreshRisk(snapshot)
	if err != nil {
		return "", 0, fmt.Errorf("risk refresh: %w", err)
	}
	return tier, score, nil
}

// buildSnapshot snapshots over the committed instances
func (m *Manager) buildSnapshot() (domain.AllocationSnapshot, error) {
	m.mu.RLock()
	instances := m.instances
	unallocated := m.unallocated
	m.mu.RUnlock()
	return m.snapshotOver(instances, unallocated)
}

// snapshotOver reads strategy balances and derives per-strategy drift
// against the given instances' effective weights.
func (m *Manager) snapshotOver(instances []*strategyInstance, unallocated uint64) (domain.AllocationSnapshot, error) {
	m.mu.RLock()
	band := m.bandParams.RebalanceBandBps
	m.mu.RUnlock()

	assets := make([]uint64, len(instances))
	total := unallocated
	for i, inst := range instances {
		a, err := inst.strategy.TotalAssets()
		if err != nil {
			return domain.AllocationSnapshot{}, fmt.Errorf("strategy %s TotalAssets: %w", inst.strategy.ID(), err)
		}
		assets[i] = a
		total += a
	}

	rows := make([]domain.StrategyAllocation, len(instances))
	for i, inst := range instances {
		var currentBps uint32
		if total > 0 {
			currentBps = uint32(assets[i] * uint64(domain.WeightScale) / total)
		}
		rows[i] = domain.StrategyAllocation{
			ID:           inst.strategy.ID(),
			Impl:         inst.impl,
			EffectiveBps: inst.effectiveBps,
			CurrentBps:   currentBps,
			DriftBps:     int32(currentBps) - int32(inst.effectiveBps),
			Assets:       assets[i],
			TargetAssets: mulDivBps(total, inst.effectiveBps),
			Liquid:       inst.liquid,
		}
	}

	return domain.AllocationSnapshot{
		Asset:       m.asset,
		TotalAssets: total,
		BandBps:     band,
		Strategies:  rows,
		TakenAt:     m.now().UTC(),
	}, nil
}
