package manager

import (
	"fmt"
	"math/bits"

	"github.com/ballastfund/ballast/internal/domain"
	"github.com/ballastfund/ballast/internal/events"
)

// Allocate routes an incoming deposit across strategies. Strategies
// strictly below their drift band are filled first, largest deficit
// first (ties broken by instance index). Whatever remains is spread
// proportionally by effective weight, with per-strategy carry
// remainders so rounding dust is conserved across calls; the last
// active strategy absorbs the integer-division leftover so the full
// amount is deployed exactly once.
//
// No-op when the manager is emergency-stopped or amount is zero. Only
// the Fund may call it.
func (m *Manager) Allocate(caller domain.Principal, amount uint64) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()

	if caller != m.fund {
		return domain.ErrNotFund
	}
	if !m.initialized {
		return domain.ErrNotInitialized
	}
	if m.emergencyStopped || amount == 0 {
		return nil
	}

	current := make([]uint64, len(m.instances))
	total := m.unallocated + amount
	for i, inst := range m.instances {
		a, err := inst.strategy.TotalAssets()
		if err != nil {
			return fmt.Errorf("strategy %s TotalAssets: %w", inst.strategy.ID(), err)
		}
		current[i] = a
		total += a
	}

	band := m.bandParams.RebalanceBandBps
	targets := make([]uint64, len(m.instances))
	bands := make([]uint64, len(m.instances))
	for i, inst := range m.instances {
		targets[i] = mulDivBps(total, inst.effectiveBps)
		bands[i] = mulDivBps(targets[i], band)
	}

	remaining := amount
	var deployed uint64
	exhausted := make([]bool, len(m.instances))

	// Phase 1: fill strategies strictly below their tolerated band,
	// largest deficit first.
	for remaining > 0 {
		donee := -1
		var bestDeficit uint64
		for i := range m.instances {
			if exhausted[i] || current[i]+bands[i] >= targets[i] {
				continue
			}
			deficit := targets[i] - current[i]
			if deficit > bestDeficit {
				bestDeficit = deficit
				donee = i
			}
		}
		if donee < 0 {
			break
		}

		toDeposit := bestDeficit
		if remaining < toDeposit {
			toDeposit = remaining
		}
		accepted, err := m.instances[donee].strategy.Deposit(toDeposit)
		if err != nil {
			return fmt.Errorf("strategy %s Deposit(%d): %w", m.instances[donee].strategy.ID(), toDeposit, err)
		}
		current[donee] += accepted
		remaining -= accepted
		deployed += accepted
		if accepted < toDeposit {
			// Adapter-side cap; stop considering this strategy.
			exhausted[donee] = true
		}
	}

	// Phase 2: proportional distribution of whatever the deficit phase
	// left over.
	if remaining > 0 {
		lastActive := -1
		for i, inst := range m.instances {
			if inst.effectiveBps > 0 {
				lastActive = i
			}
		}

		newCarry := make(map[int]uint64)
		left := remaining
		for i, inst := range m.instances {
			if inst.effectiveBps == 0 || left == 0 {
				continue
			}

			var share uint64
			if i == lastActive {
				share = left
				newCarry[i] = 0
			} else {
				hi, lo := bits.Mul64(remaining, uint64(inst.effectiveBps))
				var c uint64
				lo, c = bits.Add64(lo, inst.carryRemainder, 0)
				hi += c
				q, rem := bits.Div64(hi, lo, uint64(domain.WeightScale))
				share = q
				newCarry[i] = rem
			}
			if share > left {
				share = left
			}
			if share == 0 {
				continue
			}

			accepted, err := inst.strategy.Deposit(share)
			if err != nil {
				return fmt.Errorf("strategy %s Deposit(%d): %w", inst.strategy.ID(), share, err)
			}
			left -= share
			deployed += accepted
			// An adapter cap here strands the difference with the
			// manager; count it as unallocated balance.
			if accepted < share {
				m.mu.Lock()
				m.unallocated += share - accepted
				m.mu.Unlock()
			}
		}

		m.mu.Lock()
		for i, c := range newCarry {
			m.instances[i].carryRemainder = c
		}
		m.mu.Unlock()
	}

	m.publish(&events.AllocationExecutedData{Requested: amount, Deployed: deployed})

	m.log.Debug().
		Uint64("requested", amount).
		Uint64("deployed", deployed).
		Msg("Allocation executed")
	return nil
}
