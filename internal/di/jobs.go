package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/elasticom/internal/config"
	"github.com/aristath/elasticom/internal/scheduler"
)

// RegisterJobs creates the maintenance jobs and registers them on sched.
// sched may be nil, in which case the jobs are built but not scheduled.
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	databases := container.Databases()

	walJob := scheduler.NewCheckWALCheckpointsJob(databases...)
	walJob.SetLogger(log.With().Str("job", "check_wal_checkpoints").Logger())

	integrityJob := scheduler.NewCheckCoreDatabasesJob(databases...)
	integrityJob.SetLogger(log.With().Str("job", "check_core_databases").Logger())

	jobs := &JobInstances{
		WALCheckpoints: walJob,
		CoreDatabases:  integrityJob,
	}

	if sched != nil {
		for _, job := range jobs.All() {
			if err := sched.AddJob(cfg.MaintenanceSchedule, job); err != nil {
				return nil, fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
			}
		}
	}

	return jobs, nil
}
