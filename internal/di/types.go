/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"github.com/aristath/qpulse/internal/calibration"
	"github.com/aristath/qpulse/internal/database"
	"github.com/aristath/qpulse/internal/events"
	"github.com/aristath/qpulse/internal/modules/readout"
	"github.com/aristath/qpulse/internal/modules/sequences"
	"github.com/aristath/qpulse/internal/modules/settings"
	"github.com/aristath/qpulse/internal/modules/waveforms"
	"github.com/aristath/qpulse/internal/reliability"
	"github.com/aristath/qpulse/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: config.db (setting overrides) and cache.db (compiled waveforms)
 * - Events: synchronous bus; CONFIGURATION_CHANGED fans out cache invalidation
 * - Services: settings, sequences, calibration, waveforms, readout
 * - Scheduler: cron maintenance jobs
 */
type Container struct {
	// Databases
	ConfigDB *database.DB
	CacheDB  *database.DB

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Repositories
	SettingsRepo  *settings.Repository
	WaveformStore *waveforms.Store // nil when the persistent cache is disabled

	// Services
	SettingsService  *settings.Service
	SequenceService  *sequences.Service
	CalibrationCache *calibration.Cache
	WaveformService  *waveforms.Service
	ReadoutService   *readout.Service

	// Background jobs
	Scheduler *scheduler.Scheduler

	unsubscribers []func()
}

// JobInstances holds the registered job instances for manual triggering
type JobInstances struct {
	WaveformCleanup *waveforms.CleanupJob // nil when the persistent cache is disabled
	WALCheckpoints  *scheduler.CheckWALCheckpointsJob
	Maintenance     *reliability.MaintenanceJob
}

// Close stops event subscriptions and closes the databases.
func (c *Container) Close() error {
	for _, unsubscribe := range c.unsubscribers {
		unsubscribe()
	}
	c.unsubscribers = nil

	var firstErr error
	for _, db := range []*database.DB{c.ConfigDB, c.CacheDB} {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
