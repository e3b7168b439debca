package domain

// Strategy is a yield-generating sub-strategy holding a slice of the
// managed capital. Implementations are bound to one asset and one
// manager at creation time and must be safe to call with zero amounts.
//
// Deposit and Withdraw return the amount actually moved, which is never
// more than requested; adapter-side limits may make it less.
type Strategy interface {
	// ID returns the instance identity.
	ID() StrategyID

	// Implementation returns the registry template this instance was
	// created from.
	Implementation() ImplementationID

	// TotalAssets returns the assets currently managed by this strategy.
	TotalAssets() (uint64, error)

	// Deposit moves amount into the strategy, returning the amount
	// actually accepted.
	Deposit(amount uint64) (uint64, error)

	// Withdraw frees up to amount to the receiver, returning the amount
	// actually withdrawn.
	Withdraw(amount uint64, receiver Principal) (uint64, error)

	// MaxPossibleWithdraw reports how much could be withdrawn right now
	// for the given receiver.
	MaxPossibleWithdraw(receiver Principal) (uint64, error)
}

// StrategyRegistry answers governance questions about strategy
// implementation templates. It is owned by governance tooling; the
// manager only reads from it.
type StrategyRegistry interface {
	// IsActive reports whether the implementation is approved and active.
	IsActive(impl ImplementationID) (bool, error)

	// SupportsAsset reports whether the implementation can custody the
	// given asset.
	SupportsAsset(impl ImplementationID, asset Asset) (bool, error)

	// IsLiquid reports whether the implementation can be withdrawn from
	// promptly.
	IsLiquid(impl ImplementationID) (bool, error)
}

// RiskEngine recomputes and republishes the risk classification of a
// manager's allocation. Called as a side effect of every
// weight-changing operation.
type RiskEngine interface {
	// RefreshRisk recomputes tier and score for the given allocation and
	// persists the resulting snapshot.
	RefreshRisk(snapshot AllocationSnapshot) (RiskTier, float64, error)
}
