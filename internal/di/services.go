package di

import (
	"context"
	"fmt"

	"github.com/aristath/qpulse/internal/calibration"
	"github.com/aristath/qpulse/internal/config"
	"github.com/aristath/qpulse/internal/events"
	"github.com/aristath/qpulse/internal/modules/readout"
	"github.com/aristath/qpulse/internal/modules/sequences"
	"github.com/aristath/qpulse/internal/modules/settings"
	"github.com/aristath/qpulse/internal/modules/waveforms"
	"github.com/rs/zerolog"
)

// InitializeServices creates the event system, repositories and services, and
// subscribes every cache to CONFIGURATION_CHANGED.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	container.SettingsRepo = settings.NewRepository(container.ConfigDB.Conn(), log)
	container.SettingsService = settings.NewService(container.SettingsRepo, log)

	container.SequenceService = sequences.NewService(sequences.NewPopulatedRegistry(), log)

	source := calibration.Router{Local: calibration.FileSource{BaseDir: cfg.CalibrationDir}}
	if cfg.S3.Enabled() {
		s3Source, err := calibration.NewS3Source(ctx, calibration.S3Config{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create S3 calibration source: %w", err)
		}
		source.Remote = s3Source
		log.Info().Str("endpoint", cfg.S3.Endpoint).Str("region", cfg.S3.Region).Msg("S3 calibration source enabled")
	}
	container.CalibrationCache = calibration.NewCache(source, container.EventManager, log)

	container.WaveformService = waveforms.NewService(
		container.SequenceService,
		container.CalibrationCache,
		container.EventManager,
		log,
	)
	if cfg.Cache.Enabled {
		container.WaveformStore = waveforms.NewStore(container.CacheDB.Conn())
		container.WaveformService.SetStore(container.WaveformStore, cfg.Cache.TTL)
	}

	container.ReadoutService = readout.NewService(container.EventManager, log)

	container.unsubscribers = append(container.unsubscribers,
		container.CalibrationCache.Subscribe(container.EventBus),
		container.WaveformService.Subscribe(container.EventBus),
	)

	return nil
}
