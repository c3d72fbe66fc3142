package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// SettingsChangedData contains data for SettingsChanged events
type SettingsChangedData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value,omitempty"`
	Reset bool        `json:"reset,omitempty"`
}

// EventType returns the event type for SettingsChangedData
func (d *SettingsChangedData) EventType() EventType {
	return SettingsChanged
}

// ConfigurationChangedData contains data for ConfigurationChanged events.
// Receivers drop every cache derived from the previous configuration.
type ConfigurationChangedData struct {
	Reason string `json:"reason"`
}

// EventType returns the event type for ConfigurationChangedData
func (d *ConfigurationChangedData) EventType() EventType {
	return ConfigurationChanged
}

// CalibrationReloadedData contains data for CalibrationReloaded events
type CalibrationReloadedData struct {
	Kind string `json:"kind"` // transfer_function or crosstalk
	Path string `json:"path"`
}

// EventType returns the event type for CalibrationReloadedData
func (d *CalibrationReloadedData) EventType() EventType {
	return CalibrationReloaded
}

// WaveformsCompiledData contains data for WaveformsCompiled events
type WaveformsCompiledData struct {
	CompileID  string `json:"compile_id"`
	ConfigHash string `json:"config_hash"`
	Sequence   string `json:"sequence"`
	Qubits     int    `json:"qubits"`
	Steps      int    `json:"steps"`
	Samples    int    `json:"samples"`
	Cached     bool   `json:"cached"`
}

// EventType returns the event type for WaveformsCompiledData
func (d *WaveformsCompiledData) EventType() EventType {
	return WaveformsCompiled
}

// CacheCleanedData contains data for CacheCleaned events
type CacheCleanedData struct {
	Deleted int64 `json:"deleted"`
}

// EventType returns the event type for CacheCleanedData
func (d *CacheCleanedData) EventType() EventType {
	return CacheCleaned
}

// TracesDemodulatedData contains data for TracesDemodulated events
type TracesDemodulatedData struct {
	Qubits   int `json:"qubits"`
	Segments int `json:"segments"`
}

// EventType returns the event type for TracesDemodulatedData
func (d *TracesDemodulatedData) EventType() EventType {
	return TracesDemodulated
}

// SystemStatusChangedData contains data for SystemStatusChanged events
type SystemStatusChangedData struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	CacheEntries  int     `json:"cache_entries"`
}

// EventType returns the event type for SystemStatusChangedData
func (d *SystemStatusChangedData) EventType() EventType {
	return SystemStatusChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
