package waveforms

import (
	"github.com/aristath/qpulse/internal/events"
	"github.com/aristath/qpulse/internal/scheduler/base"
	"github.com/rs/zerolog"
)

// CleanupJob removes expired entries from the compiled waveform store.
type CleanupJob struct {
	base.JobBase
	store        *Store
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewCleanupJob creates a new compiled waveform cleanup job. eventManager may be nil.
func NewCleanupJob(store *Store, eventManager *events.Manager, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		store:        store,
		eventManager: eventManager,
		log:          log.With().Str("job", "waveform_cache_cleanup").Logger(),
	}
}

// Run executes the cleanup job.
func (j *CleanupJob) Run() error {
	deleted, err := j.store.DeleteExpired()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired waveforms")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Msg("Cleaned up expired compiled waveforms")
		if j.eventManager != nil {
			j.eventManager.EmitTyped(events.CacheCleaned, "waveforms", &events.CacheCleanedData{Deleted: deleted})
		}
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "waveform_cache_cleanup"
}
