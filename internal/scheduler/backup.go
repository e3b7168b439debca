package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfund/ballast/internal/reliability"
)

// BackupJob ships the databases to object storage on schedule
type BackupJob struct {
	service *reliability.BackupService
	dbPaths map[string]string
	log     zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *reliability.BackupService, dbPaths map[string]string, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		dbPaths: dbPaths,
		log:     log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string { return "backup" }

// Run creates and uploads one backup
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	return j.service.Run(ctx, j.dbPaths)
}
