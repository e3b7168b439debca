package scheduler

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfund/ballast/internal/database"
	"github.com/ballastfund/ballast/internal/domain"
	"github.com/ballastfund/ballast/internal/events"
	"github.com/ballastfund/ballast/internal/manager"
	"github.com/ballastfund/ballast/internal/modules/registry"
	"github.com/ballastfund/ballast/internal/modules/risk"
	"github.com/ballastfund/ballast/internal/modules/strategies"
)

func newTestManager(t *testing.T) *manager.Manager {
	t.Helper()
	log := zerolog.Nop()

	reg := registry.NewInMemory()
	reg.Register(registry.Implementation{
		ID: "impl-a", Active: true, Liquid: true, Assets: []domain.Asset{"USDC"},
	})

	mgr := manager.New(manager.Config{
		Asset:      "USDC",
		Registry:   reg,
		RiskEngine: risk.NewEngine(nil, log),
		TiltParams: domain.TiltParameters{MaxTiltBps: 1500, MaxStepBps: 500},
		BandParams: domain.RebalanceBandParameters{
			RebalanceBandBps: 200, MinRebalanceBandBps: 50, MaxRebalanceBandBps: 1000,
		},
		Fund:  "fund",
		Owner: "owner",
	}, events.NewBus(log), log)

	require.NoError(t, mgr.Initialize(
		[]domain.Strategy{strategies.NewSimVault("vault-a", "impl-a")},
		[]uint32{10000},
	))
	return mgr
}

func TestRiskRefreshJob(t *testing.T) {
	job := NewRiskRefreshJob(newTestManager(t), zerolog.Nop())

	assert.Equal(t, "risk_refresh", job.Name())
	assert.NoError(t, job.Run())
}

func TestDriftMonitorJob(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Allocate("fund", 1000))

	job := NewDriftMonitorJob(mgr, zerolog.Nop())
	assert.Equal(t, "drift_monitor", job.Name())
	assert.NoError(t, job.Run())
}

func TestWALCheckpointJob(t *testing.T) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		Profile: database.ProfileLedger,
		Name:    "test",
	})
	require.NoError(t, err)
	defer db.Close()

	job := NewWALCheckpointJob([]*database.DB{db}, zerolog.Nop())
	assert.Equal(t, "wal_checkpoint", job.Name())
	assert.NoError(t, job.Run())
}

func TestScheduler_AddJobValidatesSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	assert.NoError(t, s.AddJob("@every 1h", NewRiskRefreshJob(newTestManager(t), zerolog.Nop())))
	assert.Error(t, s.AddJob("not a schedule", NewRiskRefreshJob(newTestManager(t), zerolog.Nop())))
}
