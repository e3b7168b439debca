package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/database"
)

// WALCheckpointJob truncates each database's WAL file so long-running
// deployments don't accumulate unbounded WAL growth.
type WALCheckpointJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewWALCheckpointJob creates a new WAL checkpoint job
func NewWALCheckpointJob(databases []*database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string { return "wal_checkpoint" }

// Run checkpoints every database, continuing past individual failures
func (j *WALCheckpointJob) Run() error {
	var lastErr error
	for _, db := range j.databases {
		if err := db.Checkpoint(); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Checkpoint failed")
			lastErr = err
			continue
		}
		j.log.Debug().Str("database", db.Name()).Msg("Checkpoint completed")
	}
	return lastErr
}
