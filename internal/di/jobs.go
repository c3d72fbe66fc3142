package di

import (
	"fmt"

	"github.com/aristath/qpulse/internal/config"
	"github.com/aristath/qpulse/internal/modules/waveforms"
	"github.com/aristath/qpulse/internal/reliability"
	"github.com/aristath/qpulse/internal/scheduler"
	"github.com/rs/zerolog"
)

// walCheckSchedule runs the WAL check every 30 minutes
const walCheckSchedule = "0 */30 * * * *"

// maintenanceSchedule runs integrity checks and VACUUM on Sundays at 03:00
const maintenanceSchedule = "0 0 3 * * 0"

// RegisterJobs creates the maintenance jobs and registers them with a new scheduler.
// The scheduler is stored on the container but not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(log)
	instances := &JobInstances{}

	if container.WaveformStore != nil {
		instances.WaveformCleanup = waveforms.NewCleanupJob(container.WaveformStore, container.EventManager, log)
		if err := sched.AddJob(cfg.Cache.CleanupSchedule, instances.WaveformCleanup); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", instances.WaveformCleanup.Name(), err)
		}
	}

	instances.WALCheckpoints = scheduler.NewCheckWALCheckpointsJob(log, container.ConfigDB, container.CacheDB)
	if err := sched.AddJob(walCheckSchedule, instances.WALCheckpoints); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", instances.WALCheckpoints.Name(), err)
	}

	instances.Maintenance = reliability.NewMaintenanceJob(log, container.ConfigDB, container.CacheDB)
	if err := sched.AddJob(maintenanceSchedule, instances.Maintenance); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", instances.Maintenance.Name(), err)
	}

	container.Scheduler = sched
	return instances, nil
}
