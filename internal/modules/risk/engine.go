// Package risk classifies a manager's allocation into a tier and score
// and keeps a history of allocation snapshots.
package risk

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/ballastfund/ballast/internal/domain"
)

// Score component weights. Concentration dominates: a pool that is one
// exploit away from losing half its capital is the primary threat.
const (
	concentrationWeight = 0.45
	illiquidWeight      = 0.35
	driftWeight         = 0.20

	// driftStdCapBps is the drift dispersion treated as "fully drifted"
	driftStdCapBps = 500.0
)

// Tier thresholds over the 0-100 score
const (
	tierBalancedFloor = 25.0
	tierElevatedFloor = 50.0
	tierCriticalFloor = 75.0
)

// Engine computes risk tier and score from an allocation snapshot.
// It implements domain.RiskEngine. Snapshots are persisted when a
// repository is attached.
type Engine struct {
	repo *SnapshotRepository // optional
	log  zerolog.Logger
}

// NewEngine creates a new risk engine
func NewEngine(repo *SnapshotRepository, log zerolog.Logger) *Engine {
	return &Engine{
		repo: repo,
		log:  log.With().Str("service", "risk_engine").Logger(),
	}
}

// RefreshRisk recomputes tier and score for the allocation and persists
// the snapshot when a repository is attached
func (e *Engine) RefreshRisk(snapshot domain.AllocationSnapshot) (domain.RiskTier, float64, error) {
	score := Score(snapshot)
	tier := TierForScore(score)

	if e.repo != nil {
		if err := e.repo.Save(snapshot, tier, score); err != nil {
			return "", 0, err
		}
	}

	e.log.Debug().
		Str("tier", string(tier)).
		Float64("score", score).
		Uint64("total_assets", snapshot.TotalAssets).
		Msg("Risk refreshed")
	return tier, score, nil
}

// Score maps an allocation snapshot onto a 0-100 risk score from three
// components: effective-weight concentration (normalized Herfindahl
// index), illiquid share of managed assets, and drift dispersion
// (standard deviation of per-strategy drift).
func Score(snapshot domain.AllocationSnapshot) float64 {
	n := len(snapshot.Strategies)
	if n == 0 {
		return 0
	}

	concentration := normalizedHHI(snapshot)
	illiquid := float64(snapshot.IlliquidShareBps()) / float64(domain.WeightScale)
	drift := driftDispersion(snapshot)

	score := 100 * (concentrationWeight*concentration + illiquidWeight*illiquid + driftWeight*drift)
	return math.Min(100, math.Max(0, score))
}

// TierForScore maps a score to its coarse tier
func TierForScore(score float64) domain.RiskTier {
	switch {
	case score < tierBalancedFloor:
		return domain.RiskTierConservative
	case score < tierElevatedFloor:
		return domain.RiskTierBalanced
	case score < tierCriticalFloor:
		return domain.RiskTierElevated
	default:
		return domain.RiskTierCritical
	}
}

// normalizedHHI returns the Herfindahl index of effective weights,
// rescaled so an equal-weight set scores 0 and a single-strategy set
// scores 1.
func normalizedHHI(snapshot domain.AllocationSnapshot) float64 {
	n := float64(len(snapshot.Strategies))
	if n <= 1 {
		return 1
	}
	var hhi float64
	for _, row := range snapshot.Strategies {
		w := float64(row.EffectiveBps) / float64(domain.WeightScale)
		hhi += w * w
	}
	return (hhi - 1/n) / (1 - 1/n)
}

// driftDispersion returns the standard deviation of per-strategy drift
// in bps, capped and rescaled to [0, 1]
func driftDispersion(snapshot domain.AllocationSnapshot) float64 {
	if len(snapshot.Strategies) < 2 {
		return 0
	}
	drifts := make([]float64, len(snapshot.Strategies))
	for i, row := range snapshot.Strategies {
		drifts[i] = float64(row.DriftBps)
	}
	sd := stat.StdDev(drifts, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return math.Min(1, sd/driftStdCapBps)
}
