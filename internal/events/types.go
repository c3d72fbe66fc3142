// Package events provides event management functionality.
package events

// EventType represents different event types
type EventType string

const (
	// Configuration lifecycle
	SettingsChanged      EventType = "SETTINGS_CHANGED"
	ConfigurationChanged EventType = "CONFIGURATION_CHANGED"
	CalibrationReloaded  EventType = "CALIBRATION_RELOADED"

	// Compilation
	WaveformsCompiled EventType = "WAVEFORMS_COMPILED"
	CacheCleaned      EventType = "CACHE_CLEANED"

	// Readout
	TracesDemodulated EventType = "TRACES_DEMODULATED"

	// System
	SystemStatusChanged EventType = "SYSTEM_STATUS_CHANGED"

	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type, used by stream subscribers.
var AllTypes = []EventType{
	SettingsChanged,
	ConfigurationChanged,
	CalibrationReloaded,
	WaveformsCompiled,
	CacheCleaned,
	TracesDemodulated,
	SystemStatusChanged,
	ErrorOccurred,
}
