// Package strategies provides strategy adapters. SimVault is a
// simulated yield vault used by the sandbox binary and the test suites;
// real adapters implement the same domain.Strategy interface against
// external custody systems.
package strategies

import (
	"fmt"
	"sync"

	"github.com/ballastfund/ballast/internal/domain"
)

// SimVault is an in-memory strategy with configurable liquidity limits
type SimVault struct {
	mu sync.Mutex

	id   domain.StrategyID
	impl domain.ImplementationID

	balance uint64

	// withdrawLimit caps any single withdrawal; 0 means unlimited
	withdrawLimit uint64

	// depositLimit caps total balance; 0 means unlimited
	depositLimit uint64

	// failing simulates a broken adapter: every call errors
	failing bool
}

// Option configures a SimVault
type Option func(*SimVault)

// WithBalance seeds the vault with an initial balance
func WithBalance(balance uint64) Option {
	return func(v *SimVault) { v.balance = balance }
}

// WithWithdrawLimit caps any single withdrawal
func WithWithdrawLimit(limit uint64) Option {
	return func(v *SimVault) { v.withdrawLimit = limit }
}

// WithDepositLimit caps the vault's total balance
func WithDepositLimit(limit uint64) Option {
	return func(v *SimVault) { v.depositLimit = limit }
}

// NewSimVault creates a simulated vault bound to one implementation
func NewSimVault(id domain.StrategyID, impl domain.ImplementationID, opts ...Option) *SimVault {
	v := &SimVault{id: id, impl: impl}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ID returns the instance identity
func (v *SimVault) ID() domain.StrategyID { return v.id }

// Implementation returns the registry template of this vault
func (v *SimVault) Implementation() domain.ImplementationID { return v.impl }

// TotalAssets returns the vault balance
func (v *SimVault) TotalAssets() (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failing {
		return 0, fmt.Errorf("vault %s unavailable", v.id)
	}
	return v.balance, nil
}

// Deposit accepts up to amount, bounded by the deposit limit
func (v *SimVault) Deposit(amount uint64) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failing {
		return 0, fmt.Errorf("vault %s unavailable", v.id)
	}
	accepted := amount
	if v.depositLimit > 0 {
		if v.balance >= v.depositLimit {
			return 0, nil
		}
		if room := v.depositLimit - v.balance; accepted > room {
			accepted = room
		}
	}
	v.balance += accepted
	return accepted, nil
}

// Withdraw frees up to amount, bounded by balance and the per-call limit
func (v *SimVault) Withdraw(amount uint64, _ domain.Principal) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failing {
		return 0, fmt.Errorf("vault %s unavailable", v.id)
	}
	withdrawn := amount
	if withdrawn > v.balance {
		withdrawn = v.balance
	}
	if v.withdrawLimit > 0 && withdrawn > v.withdrawLimit {
		withdrawn = v.withdrawLimit
	}
	v.balance -= withdrawn
	return withdrawn, nil
}

// MaxPossibleWithdraw reports what a single Withdraw could free
func (v *SimVault) MaxPossibleWithdraw(_ domain.Principal) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failing {
		return 0, fmt.Errorf("vault %s unavailable", v.id)
	}
	if v.withdrawLimit > 0 && v.withdrawLimit < v.balance {
		return v.withdrawLimit, nil
	}
	return v.balance, nil
}

// Accrue simulates yield by growing the balance
func (v *SimVault) Accrue(amount uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balance += amount
}

// SetFailing toggles the broken-adapter simulation
func (v *SimVault) SetFailing(failing bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failing = failing
}
