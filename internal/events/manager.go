package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Event represents a system event with typed data
// The Data field carries the JSON form of an EventData value
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// GetTypedData attempts to convert the Data map to typed EventData
// Returns the typed data if conversion is successful, nil otherwise
func (e *Event) GetTypedData() EventData {
	if e.Data == nil {
		return nil
	}

	var data EventData
	switch e.Type {
	case SettingsChanged:
		data = &SettingsChangedData{}
	case ConfigurationChanged:
		data = &ConfigurationChangedData{}
	case CalibrationReloaded:
		data = &CalibrationReloadedData{}
	case WaveformsCompiled:
		data = &WaveformsCompiledData{}
	case CacheCleaned:
		data = &CacheCleanedData{}
	case TracesDemodulated:
		data = &TracesDemodulatedData{}
	case SystemStatusChanged:
		data = &SystemStatusChangedData{}
	case ErrorOccurred:
		data = &ErrorEventData{}
	default:
		return nil
	}

	if err := convertMapToStruct(e.Data, data); err != nil {
		return nil
	}
	return data
}

// convertMapToStruct converts a map[string]interface{} to a struct
func convertMapToStruct(m map[string]interface{}, v interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}

// Manager emits events on the bus and logs each one at a level chosen by type.
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("service", "events").Logger(),
	}
}

// Bus returns the underlying bus for subscribers.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Emit emits an untyped payload.
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	m.bus.Emit(eventType, module, data)
	m.logEvent(eventType, module, data)
}

// EmitTyped emits data in its JSON map form. A payload that cannot be encoded is
// emitted without data.
func (m *Manager) EmitTyped(eventType EventType, module string, data EventData) {
	dataMap, err := toMap(data)
	if err != nil {
		m.log.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to encode event data")
	}
	m.bus.Emit(eventType, module, dataMap)
	m.logEvent(eventType, module, dataMap)
}

// EmitError emits an ERROR_OCCURRED event for err.
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.EmitTyped(ErrorOccurred, module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}

func (m *Manager) logEvent(eventType EventType, module string, data map[string]interface{}) {
	var e *zerolog.Event
	switch eventType {
	case ErrorOccurred:
		e = m.log.Error()
	case WaveformsCompiled, TracesDemodulated, SystemStatusChanged:
		// emitted per request or per tick
		e = m.log.Debug()
	default:
		e = m.log.Info()
	}
	e.Str("event_type", string(eventType)).
		Str("module", module).
		Fields(data).
		Msg("Event emitted")
}

// toMap converts typed EventData to its JSON object form.
func toMap(data EventData) (map[string]interface{}, error) {
	if data == nil {
		return nil, nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil, err
	}
	return result, nil
}
