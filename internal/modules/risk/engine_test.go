package risk

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfund/ballast/internal/domain"
)

func snapshotOf(rows ...domain.StrategyAllocation) domain.AllocationSnapshot {
	var total uint64
	for _, row := range rows {
		total += row.Assets
	}
	return domain.AllocationSnapshot{
		Asset:       "USDC",
		TotalAssets: total,
		BandBps:     200,
		Strategies:  rows,
		TakenAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestScore_EqualWeightLiquidNoDrift(t *testing.T) {
	snap := snapshotOf(
		domain.StrategyAllocation{ID: "a", EffectiveBps: 5000, Assets: 500, Liquid: true},
		domain.StrategyAllocation{ID: "b", EffectiveBps: 5000, Assets: 500, Liquid: true},
	)

	// Zero concentration, zero illiquid share, zero drift.
	assert.InDelta(t, 0, Score(snap), 1e-9)
	assert.Equal(t, domain.RiskTierConservative, TierForScore(Score(snap)))
}

func TestScore_SingleStrategyIsMaxConcentration(t *testing.T) {
	snap := snapshotOf(
		domain.StrategyAllocation{ID: "a", EffectiveBps: 10000, Assets: 1000, Liquid: true},
	)

	// Concentration component saturates at 1: 100 * 0.45 = 45.
	assert.InDelta(t, 45, Score(snap), 1e-9)
	assert.Equal(t, domain.RiskTierBalanced, TierForScore(Score(snap)))
}

func TestScore_IlliquidShareRaisesScore(t *testing.T) {
	liquid := snapshotOf(
		domain.StrategyAllocation{ID: "a", EffectiveBps: 5000, Assets: 500, Liquid: true},
		domain.StrategyAllocation{ID: "b", EffectiveBps: 5000, Assets: 500, Liquid: true},
	)
	halfIlliquid := snapshotOf(
		domain.StrategyAllocation{ID: "a", EffectiveBps: 5000, Assets: 500, Liquid: true},
		domain.StrategyAllocation{ID: "b", EffectiveBps: 5000, Assets: 500, Liquid: false},
	)

	assert.Greater(t, Score(halfIlliquid), Score(liquid))
	// 35 * 0.5 = 17.5 from the illiquid component alone
	assert.InDelta(t, 17.5, Score(halfIlliquid), 1e-9)
}

func TestScore_DriftDispersionCapped(t *testing.T) {
	drifted := snapshotOf(
		domain.StrategyAllocation{ID: "a", EffectiveBps: 5000, DriftBps: 2000, Assets: 700, Liquid: true},
		domain.StrategyAllocation{ID: "b", EffectiveBps: 5000, DriftBps: -2000, Assets: 300, Liquid: true},
	)

	// Dispersion far beyond the cap contributes exactly the full drift
	// weight: 100 * 0.20 = 20.
	assert.InDelta(t, 20, Score(drifted), 1e-9)
}

func TestScore_EmptySnapshot(t *testing.T) {
	assert.Equal(t, 0.0, Score(domain.AllocationSnapshot{}))
}

func TestTierForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.RiskTier
	}{
		{0, domain.RiskTierConservative},
		{24.99, domain.RiskTierConservative},
		{25, domain.RiskTierBalanced},
		{49.99, domain.RiskTierBalanced},
		{50, domain.RiskTierElevated},
		{74.99, domain.RiskTierElevated},
		{75, domain.RiskTierCritical},
		{100, domain.RiskTierCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TierForScore(tt.score), "score %.2f", tt.score)
	}
}

func TestRefreshRisk_WithoutRepository(t *testing.T) {
	engine := NewEngine(nil, zerolog.Nop())

	snap := snapshotOf(
		domain.StrategyAllocation{ID: "a", EffectiveBps: 5000, Assets: 500, Liquid: true},
		domain.StrategyAllocation{ID: "b", EffectiveBps: 5000, Assets: 500, Liquid: true},
	)

	tier, score, err := engine.RefreshRisk(snap)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskTierConservative, tier)
	assert.InDelta(t, 0, score, 1e-9)
}
