package manager

import (
	"fmt"

	"github.com/ballastfund/ballast/internal/domain"
	"github.com/ballastfund/ballast/internal/events"
)

// Deallocate withdraws from strategies to satisfy a redemption and
// returns the amount actually freed, which may be less than requested
// when aggregate strategy liquidity is insufficient; callers must
// handle partial fulfillment.
//
// Order: overweight liquid strategies first (largest excess first),
// then overweight non-liquid ones, then a sweep over every liquid and
// finally every non-liquid strategy bounded by each strategy's own
// reported maximum. The sweep deliberately ignores the band so
// redemptions are served whenever liquidity exists at all, even from
// strategies that are not overweight.
//
// Deallocate remains available after an emergency stop.
func (m *Manager) Deallocate(caller domain.Principal, requested uint64) (uint64, error) {
	if err := m.enter(); err != nil {
		return 0, err
	}
	defer m.exit()

	if caller != m.fund {
		return 0, domain.ErrNotFund
	}
	if !m.initialized {
		return 0, domain.ErrNotInitialized
	}
	if requested == 0 {
		return 0, nil
	}

	current := make([]uint64, len(m.instances))
	total := m.unallocated
	for i, inst := range m.instances {
		a, err := inst.strategy.TotalAssets()
		if err != nil {
			return 0, fmt.Errorf("strategy %s TotalAssets: %w", inst.strategy.ID(), err)
		}
		current[i] = a
		total += a
	}

	band := m.bandParams.RebalanceBandBps
	excess := make([]uint64, len(m.instances))
	for i, inst := range m.instances {
		target := mulDivBps(total, inst.effectiveBps)
		threshold := target + mulDivBps(target, band)
		if current[i] > threshold {
			excess[i] = current[i] - threshold
		}
	}

	remaining := requested
	exhausted := make([]bool, len(m.instances))

	// Two excess-prioritized passes: liquid overweight first, then
	// non-liquid overweight.
	for _, wantLiquid := range []bool{true, false} {
		for remaining > 0 {
			donor := -1
			var bestExcess uint64
			for i, inst := range m.instances {
				if exhausted[i] || inst.liquid != wantLiquid || excess[i] == 0 {
					continue
				}
				if excess[i] > bestExcess {
					bestExcess = excess[i]
					donor = i
				}
			}
			if donor < 0 {
				break
			}

			toWithdraw := bestExcess
			if remaining < toWithdraw {
				toWithdraw = remaining
			}
			withdrawn, err := m.instances[donor].strategy.Withdraw(toWithdraw, m.fund)
			if err != nil {
				return 0, fmt.Errorf("strategy %s Withdraw(%d): %w", m.instances[donor].strategy.ID(), toWithdraw, err)
			}
			remaining -= withdrawn
			current[donor] -= withdrawn
			if withdrawn >= excess[donor] {
				excess[donor] = 0
			} else {
				excess[donor] -= withdrawn
			}
			if withdrawn < toWithdraw {
				exhausted[donor] = true
			}
		}
	}

	// Fallback sweep: every liquid strategy in index order, then every
	// non-liquid one, bounded by each strategy's reported maximum.
	if remaining > 0 {
		for _, wantLiquid := range []bool{true, false} {
			for i, inst := range m.instances {
				if remaining == 0 {
					break
				}
				if inst.liquid != wantLiquid || current[i] == 0 {
					continue
				}
				maxW, err := inst.strategy.MaxPossibleWithdraw(m.fund)
				if err != nil {
					return 0, fmt.Errorf("strategy %s MaxPossibleWithdraw: %w", inst.strategy.ID(), err)
				}
				toWithdraw := remaining
				if maxW < toWithdraw {
					toWithdraw = maxW
				}
				if current[i] < toWithdraw {
					toWithdraw = current[i]
				}
				if toWithdraw == 0 {
					continue
				}
				withdrawn, err := inst.strategy.Withdraw(toWithdraw, m.fund)
				if err != nil {
					return 0, fmt.Errorf("strategy %s Withdraw(%d): %w", inst.strategy.ID(), toWithdraw, err)
				}
				remaining -= withdrawn
				current[i] -= withdrawn
			}
		}
	}

	freed := requested - remaining
	m.publish(&events.DeallocationExecutedData{Requested: requested, Freed: freed})

	m.log.Debug().
		Uint64("requested", requested).
		Uint64("freed", freed).
		Msg("Deallocation executed")
	return freed, nil
}
