package server

import (
	"sync"
	"time"

	"github.com/aristath/qpulse/internal/events"
	"github.com/rs/zerolog"
)

// StatusMonitor periodically samples system status and emits SYSTEM_STATUS_CHANGED
type StatusMonitor struct {
	eventManager   *events.Manager
	systemHandlers *SystemHandlers
	log            zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(eventManager *events.Manager, systemHandlers *SystemHandlers, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		eventManager:   eventManager,
		systemHandlers: systemHandlers,
		log:            log.With().Str("component", "status_monitor").Logger(),
		stop:           make(chan struct{}),
	}
}

// Start begins periodic status monitoring
func (m *StatusMonitor) Start(interval time.Duration) {
	go m.monitor(interval)
}

// Stop ends the monitoring loop
func (m *StatusMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *StatusMonitor) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.checkStatus()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.checkStatus()
		}
	}
}

func (m *StatusMonitor) checkStatus() {
	if m.eventManager == nil || m.systemHandlers == nil {
		return
	}

	status := m.systemHandlers.StatusSnapshot()
	data := &events.SystemStatusChangedData{
		CPUPercent:    status.CPUPercent,
		MemoryPercent: status.MemoryPercent,
	}
	if status.WaveformCache != nil {
		data.CacheEntries = status.WaveformCache.Entries
	}
	m.eventManager.EmitTyped(events.SystemStatusChanged, "status_monitor", data)
}
