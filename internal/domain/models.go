// Package domain provides core domain models and collaborator contracts.
package domain

import "time"

// WeightScale is the denominator of the basis-point weight scale.
// All weights, tilts and bands are expressed on a 0-10000 scale.
const WeightScale uint32 = 10000

// MinCoreWeightBps is the floor for any strategy's core weight at
// initialization. Strategies that should carry no capital simply must
// not be part of the set.
const MinCoreWeightBps uint32 = 100

// Asset identifies the single custodied asset a manager is bound to
// (e.g. a token address or an ISIN). Amounts are integer base units of
// this asset.
type Asset string

// ImplementationID identifies a strategy implementation template as
// known to the strategy registry.
type ImplementationID string

// StrategyID identifies one strategy instance bound to a manager.
type StrategyID string

// Principal identifies the caller of a manager operation. Authorization
// is an explicit predicate over principals, not ambient state.
type Principal string

// RiskTier is the coarse risk classification published by the risk engine.
type RiskTier string

const (
	RiskTierConservative RiskTier = "conservative"
	RiskTierBalanced     RiskTier = "balanced"
	RiskTierElevated     RiskTier = "elevated"
	RiskTierCritical     RiskTier = "critical"
)

// TiltParameters bounds tilt governance. Immutable after initialization.
type TiltParameters struct {
	MaxTiltBps   uint32        // bound on |tilt| per strategy
	MaxStepBps   uint32        // bound on per-update tilt change per strategy
	TiltCooldown time.Duration // minimum time between tilt updates
}

// RebalanceBandParameters holds the drift band and its governed bounds.
// The band itself is mutable within [Min, Max]; the bounds and cooldown
// are immutable.
type RebalanceBandParameters struct {
	RebalanceBandBps    uint32
	MinRebalanceBandBps uint32
	MaxRebalanceBandBps uint32
	BandUpdateCooldown  time.Duration
}

// StrategyWeights is the weight state of one strategy instance as
// exposed by the read views.
type StrategyWeights struct {
	ID           StrategyID       `json:"id"`
	Impl         ImplementationID `json:"implementation"`
	CoreBps      uint32           `json:"core_bps"`
	TiltBps      int32            `json:"tilt_bps"`
	EffectiveBps uint32           `json:"effective_bps"`
	Liquid       bool             `json:"liquid"`
}

// StrategyAllocation is one row of an allocation snapshot: where a
// strategy stands relative to its target.
type StrategyAllocation struct {
	ID           StrategyID       `json:"id" msgpack:"id"`
	Impl         ImplementationID `json:"implementation" msgpack:"impl"`
	EffectiveBps uint32           `json:"effective_bps" msgpack:"effective_bps"`
	CurrentBps   uint32           `json:"current_bps" msgpack:"current_bps"`
	DriftBps     int32            `json:"drift_bps" msgpack:"drift_bps"`
	Assets       uint64           `json:"assets" msgpack:"assets"`
	TargetAssets uint64           `json:"target_assets" msgpack:"target_assets"`
	Liquid       bool             `json:"liquid" msgpack:"liquid"`
}

// AllocationSnapshot captures the manager's allocation at a point in
// time. It is the input to the risk engine and the payload persisted by
// the risk snapshot repository.
type AllocationSnapshot struct {
	Asset       Asset                `json:"asset" msgpack:"asset"`
	TotalAssets uint64               `json:"total_assets" msgpack:"total_assets"`
	BandBps     uint32               `json:"band_bps" msgpack:"band_bps"`
	Strategies  []StrategyAllocation `json:"strategies" msgpack:"strategies"`
	TakenAt     time.Time            `json:"taken_at" msgpack:"taken_at"`
}

// IlliquidShareBps returns the share of managed assets held by
// strategies the registry classifies as non-liquid.
func (s AllocationSnapshot) IlliquidShareBps() uint32 {
	if s.TotalAssets == 0 {
		return 0
	}
	var illiquid uint64
	for _, row := range s.Strategies {
		if !row.Liquid {
			illiquid += row.Assets
		}
	}
	return uint32(illiquid * uint64(WeightScale) / s.TotalAssets)
}
