package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/manager"
)

// DriftMonitorJob logs strategies that have drifted outside the band.
// It never moves capital itself; rebalancing stays an explicit,
// owner-gated decision.
type DriftMonitorJob struct {
	manager *manager.Manager
	log     zerolog.Logger
}

// NewDriftMonitorJob creates a new drift monitor job
func NewDriftMonitorJob(mgr *manager.Manager, log zerolog.Logger) *DriftMonitorJob {
	return &DriftMonitorJob{
		manager: mgr,
		log:     log.With().Str("job", "drift_monitor").Logger(),
	}
}

// Name returns the job name
func (j *DriftMonitorJob) Name() string { return "drift_monitor" }

// Run inspects the current allocation and reports out-of-band drift
func (j *DriftMonitorJob) Run() error {
	snapshot, err := j.manager.GetAllocation()
	if err != nil {
		return err
	}

	band := int32(snapshot.BandBps)
	outOfBand := 0
	for _, row := range snapshot.Strategies {
		drift := row.DriftBps
		if drift < 0 {
			drift = -drift
		}
		if drift > band {
			outOfBand++
			j.log.Warn().
				Str("strategy", string(row.ID)).
				Int32("drift_bps", row.DriftBps).
				Uint32("band_bps", snapshot.BandBps).
				Uint64("assets", row.Assets).
				Uint64("target_assets", row.TargetAssets).
				Msg("Strategy outside drift band")
		}
	}

	if outOfBand == 0 {
		j.log.Debug().Int("strategies", len(snapshot.Strategies)).Msg("All strategies within band")
	}
	return nil
}
