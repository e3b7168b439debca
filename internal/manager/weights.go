package manager

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/ballastfund/ballast/internal/domain"
	"github.com/ballastfund/ballast/internal/events"
)

// strategyInstance is the per-strategy weight state. The core weight is
// immutable after initialization; the tilt is the only mutable part and
// the effective weight is recomputed on every tilt change.
type strategyInstance struct {
	strategy domain.Strategy
	impl     domain.ImplementationID

	coreBps      uint32
	tiltBps      int32
	effectiveBps uint32
	liquid       bool

	// carryRemainder accumulates sub-unit rounding dust from the
	// proportional fallback of Allocate, in units of 1/10000 asset unit.
	carryRemainder uint64
}

// effectiveWeight derives core + tilt, failing on under/overflow of the
// unsigned weight range rather than clamping silently.
func effectiveWeight(coreBps uint32, tiltBps int32) (uint32, error) {
	if tiltBps >= 0 {
		eff := uint64(coreBps) + uint64(tiltBps)
		if eff > uint64(domain.WeightScale) {
			return 0, fmt.Errorf("%w: core %d + tilt %d", domain.ErrEffectiveWeightRange, coreBps, tiltBps)
		}
		return uint32(eff), nil
	}
	mag := uint32(-tiltBps)
	if mag > coreBps {
		return 0, fmt.Errorf("%w: core %d - tilt magnitude %d", domain.ErrEffectiveWeightRange, coreBps, mag)
	}
	return coreBps - mag, nil
}

// checkWeightSum enforces the set-level invariant: effective weights
// must sum to exactly 10000 after any mutation.
func checkWeightSum(instances []*strategyInstance) error {
	var sum uint64
	for _, inst := range instances {
		sum += uint64(inst.effectiveBps)
	}
	if sum != uint64(domain.WeightScale) {
		return fmt.Errorf("%w: got %d", domain.ErrWeightSumViolation, sum)
	}
	return nil
}

// mulDivBps computes amount * bps / 10000 without intermediate overflow
func mulDivBps(amount uint64, bps uint32) uint64 {
	hi, lo := bits.Mul64(amount, uint64(bps))
	q, _ := bits.Div64(hi, lo, uint64(domain.WeightScale))
	return q
}

// absDelta returns |a - b| for signed bps values
func absDelta(a, b int32) uint32 {
	d := int64(a) - int64(b)
	if d < 0 {
		d = -d
	}
	return uint32(d)
}

// SetTilt redistributes weight between strategies. Tilting never
// creates or destroys weight: the proposed tilts must sum to exactly
// zero. Each tilt is bounded by maxTiltBps, each change by maxStepBps,
// and updates are gated by the tilt cooldown.
func (m *Manager) SetTilt(caller domain.Principal, newTiltBps []int32, rationale string) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()

	if !m.initialized {
		return domain.ErrNotInitialized
	}
	if caller != m.owner {
		return domain.ErrNotManagerOwner
	}
	if len(newTiltBps) != len(m.instances) {
		return fmt.Errorf("%w: %d tilts vs %d strategies", domain.ErrLengthMismatch, len(newTiltBps), len(m.instances))
	}

	now := m.now()
	if !m.lastTiltUpdateAt.IsZero() && now.Sub(m.lastTiltUpdateAt) < m.tiltParams.TiltCooldown {
		return fmt.Errorf("%w: tilt cooldown until %s", domain.ErrCooldownNotElapsed,
			m.lastTiltUpdateAt.Add(m.tiltParams.TiltCooldown).Format(time.RFC3339))
	}

	var tiltSum int64
	newEffective := make([]uint32, len(m.instances))
	for i, inst := range m.instances {
		tilt := newTiltBps[i]
		if tilt > int32(m.tiltParams.MaxTiltBps) || tilt < -int32(m.tiltParams.MaxTiltBps) {
			return fmt.Errorf("%w: index %d tilt %d", domain.ErrTiltOutOfRange, i, tilt)
		}
		if absDelta(tilt, inst.tiltBps) > m.tiltParams.MaxStepBps {
			return fmt.Errorf("%w: index %d change %d", domain.ErrTiltStepExceeded, i, absDelta(tilt, inst.tiltBps))
		}
		eff, err := effectiveWeight(inst.coreBps, tilt)
		if err != nil {
			return err
		}
		newEffective[i] = eff
		tiltSum += int64(tilt)
	}
	if tiltSum != 0 {
		return fmt.Errorf("%w: sum %d", domain.ErrTiltSumNotZero, tiltSum)
	}

	// Post-condition on the derived weights before anything is committed.
	var effSum uint64
	for _, eff := range newEffective {
		effSum += uint64(eff)
	}
	if effSum != uint64(domain.WeightScale) {
		return fmt.Errorf("%w: got %d", domain.ErrWeightSumViolation, effSum)
	}

	// Vet the prospective weights with the risk engine before anything
	// is committed. A failing collaborator aborts the whole operation:
	// tilts, effective weights and the cooldown stamp stay untouched.
	prospective := make([]*strategyInstance, len(m.instances))
	for i, inst := range m.instances {
		c := *inst
		c.tiltBps = newTiltBps[i]
		c.effectiveBps = newEffective[i]
		prospective[i] = &c
	}
	snapshot, err := m.snapshotOver(prospective, m.unallocated)
	if err != nil {
		return fmt.Errorf("building allocation snapshot: %w", err)
	}
	tier, score, err := m.classifyRisk(snapshot)
	if err != nil {
		return err
	}

	m.mu.Lock()
	for i, inst := range m.instances {
		inst.tiltBps = newTiltBps[i]
		inst.effectiveBps = newEffective[i]
	}
	m.lastTiltUpdateAt = now
	m.mu.Unlock()

	m.publish(&events.TiltUpdatedData{
		TiltBps:   append([]int32(nil), newTiltBps...),
		Rationale: rationale,
		UpdatedBy: string(caller),
	})
	m.publish(&events.RiskRefreshedData{Tier: string(tier), Score: score})

	m.log.Info().
		Ints32("tilt_bps", newTiltBps).
		Str("rationale", rationale).
		Msg("Tilt updated")
	return nil
}

// SetRebalanceBandBps updates the drift band within its governed range.
// The first-ever update is exempt from the cooldown.
func (m *Manager) SetRebalanceBandBps(caller domain.Principal, newBandBps uint32) error {
	if err := m.enter(); err != nil {
		return err
	}
	defer m.exit()

	if caller != m.owner {
		return domain.ErrNotManagerOwner
	}
	if newBandBps < m.bandParams.MinRebalanceBandBps || newBandBps > m.bandParams.MaxRebalanceBandBps {
		return fmt.Errorf("%w: %d not in [%d, %d]", domain.ErrBandOutOfRange,
			newBandBps, m.bandParams.MinRebalanceBandBps, m.bandParams.MaxRebalanceBandBps)
	}

	now := m.now()
	if !m.lastBandUpdateAt.IsZero() && now.Sub(m.lastBandUpdateAt) < m.bandParams.BandUpdateCooldown {
		return fmt.Errorf("%w: band cooldown until %s", domain.ErrCooldownNotElapsed,
			m.lastBandUpdateAt.Add(m.bandParams.BandUpdateCooldown).Format(time.RFC3339))
	}

	m.mu.Lock()
	old := m.bandParams.RebalanceBandBps
	m.bandParams.RebalanceBandBps = newBandBps
	m.lastBandUpdateAt = now
	m.mu.Unlock()

	m.publish(&events.RebalanceBandUpdatedData{
		OldBandBps: old,
		NewBandBps: newBandBps,
		UpdatedBy:  string(caller),
	})

	m.log.Info().Uint32("old_band_bps", old).Uint32("new_band_bps", newBandBps).Msg("Rebalance band updated")
	return nil
}
