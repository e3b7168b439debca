package risk

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ballastfund/ballast/internal/domain"
)

func newTestSnapshotRepo(t *testing.T) *SnapshotRepository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := NewSnapshotRepository(db, zerolog.Nop())
	require.NoError(t, repo.InitSchema())
	return repo
}

func testAllocation(takenAt time.Time) domain.AllocationSnapshot {
	return domain.AllocationSnapshot{
		Asset:       "USDC",
		TotalAssets: 1000,
		BandBps:     200,
		Strategies: []domain.StrategyAllocation{
			{ID: "vault-a", Impl: "impl-a", EffectiveBps: 7000, CurrentBps: 7100, DriftBps: 100, Assets: 710, TargetAssets: 700, Liquid: true},
			{ID: "vault-b", Impl: "impl-b", EffectiveBps: 3000, CurrentBps: 2900, DriftBps: -100, Assets: 290, TargetAssets: 300, Liquid: false},
		},
		TakenAt: takenAt,
	}
}

func TestSnapshotRepository_LatestEmpty(t *testing.T) {
	repo := newTestSnapshotRepo(t)

	snap, err := repo.Latest()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSnapshotRepository_SaveAndLatest(t *testing.T) {
	repo := newTestSnapshotRepo(t)
	takenAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(testAllocation(takenAt), domain.RiskTierBalanced, 31.5))

	snap, err := repo.Latest()
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, domain.RiskTierBalanced, snap.Tier)
	assert.Equal(t, 31.5, snap.Score)
	assert.Equal(t, takenAt, snap.TakenAt)

	// The allocation payload survives the msgpack round trip
	require.Len(t, snap.Allocation.Strategies, 2)
	assert.Equal(t, domain.StrategyID("vault-a"), snap.Allocation.Strategies[0].ID)
	assert.Equal(t, int32(-100), snap.Allocation.Strategies[1].DriftBps)
	assert.Equal(t, uint64(1000), snap.Allocation.TotalAssets)
}

func TestSnapshotRepository_RecentOrderedNewestFirst(t *testing.T) {
	repo := newTestSnapshotRepo(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(testAllocation(base), domain.RiskTierConservative, 10))
	require.NoError(t, repo.Save(testAllocation(base.Add(time.Hour)), domain.RiskTierBalanced, 30))
	require.NoError(t, repo.Save(testAllocation(base.Add(2*time.Hour)), domain.RiskTierElevated, 60))

	snaps, err := repo.Recent(2)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, domain.RiskTierElevated, snaps[0].Tier)
	assert.Equal(t, domain.RiskTierBalanced, snaps[1].Tier)
}

func TestEngine_PersistsSnapshot(t *testing.T) {
	repo := newTestSnapshotRepo(t)
	engine := NewEngine(repo, zerolog.Nop())

	takenAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tier, score, err := engine.RefreshRisk(testAllocation(takenAt))
	require.NoError(t, err)

	snap, err := repo.Latest()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, tier, snap.Tier)
	assert.Equal(t, score, snap.Score)
}
