package manager

import (
	"fmt"

	"github.com/ballastfund/ballast/internal/domain"
	"github.com/ballastfund/ballast/internal/events"
)

// Rebalance moves capital directly between strategies: each leg
// withdraws from the donor with the largest remaining excess (liquid
// donors preferred on ties) and deposits into the receiver with the
// largest remaining deficit. The call is bounded by a total asset
// budget and a leg count; it stops early when no donor or receiver
// remains. Adapter-side shortfalls reduce the accounted amounts rather
// than failing the call.
//
// Returns the assets actually moved, which may be less than the budget.
// Owner-gated; a no-op returning 0 when emergency-stopped.
func (m *Manager) Rebalance(caller domain.Principal, maxAssetsToMove uint64, maxLegs int) (uint64, error) {
	if err := m.enter(); err != nil {
		return 0, err
	}
	defer m.exit()

	if caller != m.owner {
		return 0, domain.ErrNotManagerOwner
	}
	if !m.initialized {
		return 0, domain.ErrNotInitialized
	}
	if maxAssetsToMove == 0 || maxLegs == 0 {
		return 0, domain.ErrZeroArgument
	}
	if m.emergencyStopped {
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
	deficit := make([]uint64, len(m.instances))
	for i, inst := range m.instances {
		target := mulDivBps(total, inst.effectiveBps)
		b := mulDivBps(target, band)
		if current[i] > target+b {
			excess[i] = current[i] - (target + b)
		}
		if current[i]+b < target {
			deficit[i] = target - (current[i] + b)
		}
	}

	budget := maxAssetsToMove
	var moved uint64
	var strandedDelta uint64
	legs := 0
	donorDone := make([]bool, len(m.instances))
	receiverDone := make([]bool, len(m.instances))

	for legs < maxLegs && budget > 0 {
		donor := -1
		var donorLiquid bool
		for i, inst := range m.instances {
			if donorDone[i] || excess[i] == 0 {
				continue
			}
			switch {
			case donor < 0:
				donor, donorLiquid = i, inst.liquid
			case excess[i] > excess[donor]:
				donor, donorLiquid = i, inst.liquid
			case excess[i] == excess[donor] && inst.liquid && !donorLiquid:
				donor, donorLiquid = i, inst.liquid
			}
		}

		receiver := -1
		for i := range m.instances {
			if receiverDone[i] || deficit[i] == 0 {
				continue
			}
			if receiver < 0 || deficit[i] > deficit[receiver] {
				receiver = i
			}
		}

		if donor < 0 || receiver < 0 {
			break
		}

		move := excess[donor]
		if deficit[receiver] < move {
			move = deficit[receiver]
		}
		if budget < move {
			move = budget
		}

		legs++

		withdrawn, err := m.instances[donor].strategy.Withdraw(move, m.self)
		if err != nil {
			return 0, fmt.Errorf("strategy %s Withdraw(%d): %w", m.instances[donor].strategy.ID(), move, err)
		}
		if withdrawn == 0 {
			donorDone[donor] = true
			continue
		}

		deposited, err := m.instances[receiver].strategy.Deposit(withdrawn)
		if err != nil {
			return 0, fmt.Errorf("strategy %s Deposit(%d): %w", m.instances[receiver].strategy.ID(), withdrawn, err)
		}

		// Account what actually transferred, not what was requested.
		if withdrawn >= excess[donor] {
			excess[donor] = 0
		} else {
			excess[donor] -= withdrawn
		}
		if deposited >= deficit[receiver] {
			deficit[receiver] = 0
		} else {
			deficit[receiver] -= deposited
		}
		current[donor] -= withdrawn
		current[receiver] += deposited
		budget -= withdrawn
		moved += deposited

		if deposited < withdrawn {
			strandedDelta += withdrawn - deposited
			receiverDone[receiver] = true
		}
		if withdrawn < move {
			donorDone[donor] = true
		}
	}

	if strandedDelta > 0 {
		m.mu.Lock()
		m.unallocated += strandedDelta
		m.mu.Unlock()
	}

	if moved > 0 {
		m.publish(&events.RebalanceExecutedData{
			Mover:       string(caller),
			AssetsMoved: moved,
			Legs:        legs,
		})
		if err := m.refreshRisk(); err != nil {
			return moved, err
		}
		m.log.Info().
			Uint64("assets_moved", moved).
			Int("legs", legs).
			Str("mover", string(caller)).
			Msg("Rebalance executed")
	}

	return moved, nil
}
