package scheduler

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/domain"
	"github.com/ballastfund/ballast/internal/manager"
)

// RiskRefreshJob periodically recomputes the risk classification even
// when no weight-changing operation has run, so the published snapshot
// tracks yield accrual inside strategies.
type RiskRefreshJob struct {
	manager *manager.Manager
	log     zerolog.Logger
}

// NewRiskRefreshJob creates a new risk refresh job
func NewRiskRefreshJob(mgr *manager.Manager, log zerolog.Logger) *RiskRefreshJob {
	return &RiskRefreshJob{
		manager: mgr,
		log:     log.With().Str("job", "risk_refresh").Logger(),
	}
}

// Name returns the job name
func (j *RiskRefreshJob) Name() string { return "risk_refresh" }

// Run recomputes and republishes the risk snapshot
func (j *RiskRefreshJob) Run() error {
	err := j.manager.RefreshRiskNow()
	if errors.Is(err, domain.ErrReentrantCall) {
		// A manager operation is in flight; it ends with its own
		// refresh, so this tick can be skipped.
		j.log.Debug().Msg("Manager busy, skipping refresh")
		return nil
	}
	return err
}
