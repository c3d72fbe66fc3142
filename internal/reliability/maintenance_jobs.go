// Package reliability holds the periodic database maintenance jobs.
package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/qpulse/internal/database"
	"github.com/aristath/qpulse/internal/scheduler/base"
	"github.com/rs/zerolog"
)

// MaintenanceJob checks the integrity of every database and compacts the
// profiles that churn (the compiled-waveform cache).
type MaintenanceJob struct {
	base.JobBase
	databases []*database.DB
	log       zerolog.Logger
}

// NewMaintenanceJob creates the maintenance job. Nil databases are skipped.
func NewMaintenanceJob(log zerolog.Logger, databases ...*database.DB) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		log:       log.With().Str("job", "database_maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance job. An integrity failure aborts the run.
func (j *MaintenanceJob) Run() error {
	j.log.Info().Msg("Starting database maintenance")
	startTime := time.Now()

	for _, db := range j.databases {
		if db == nil {
			continue
		}
		if err := db.IntegrityCheck(context.Background()); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Integrity check failed")
			return err
		}

		if db.Profile() != database.ProfileCache {
			continue
		}
		if err := j.vacuumDatabase(db); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("VACUUM failed")
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Database maintenance completed")
	return nil
}

// vacuumDatabase performs VACUUM on a database
func (j *MaintenanceJob) vacuumDatabase(db *database.DB) error {
	sizeBefore := sizeMB(db)

	if _, err := db.Conn().Exec("VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	sizeAfter := sizeMB(db)
	j.log.Info().
		Str("database", db.Name()).
		Float64("size_before_mb", sizeBefore).
		Float64("size_after_mb", sizeAfter).
		Float64("space_reclaimed_mb", sizeBefore-sizeAfter).
		Msg("VACUUM completed")
	return nil
}

func sizeMB(db *database.DB) float64 {
	var pageCount, pageSize int
	_ = db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount)
	_ = db.Conn().QueryRow("PRAGMA page_size").Scan(&pageSize)
	return float64(pageCount*pageSize) / 1024 / 1024
}
