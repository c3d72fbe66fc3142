package events

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewManager(NewBus(log), log)
}

func TestBus_SubscribeAndEmit(t *testing.T) {
	m := newTestManager()

	var received []*Event
	unsubscribe := m.Bus().Subscribe(ConfigurationChanged, func(e *Event) {
		received = append(received, e)
	})

	m.EmitTyped(ConfigurationChanged, "settings", &ConfigurationChangedData{Reason: "xy.width"})
	m.Emit(WaveformsCompiled, "waveforms", nil)

	require.Len(t, received, 1)
	assert.Equal(t, ConfigurationChanged, received[0].Type)
	assert.Equal(t, "settings", received[0].Module)
	assert.Equal(t, "xy.width", received[0].Data["reason"])

	unsubscribe()
	m.EmitTyped(ConfigurationChanged, "settings", &ConfigurationChangedData{Reason: "again"})
	assert.Len(t, received, 1)
	assert.Equal(t, 0, m.Bus().SubscriberCount(ConfigurationChanged))
}

func TestBus_PanickingHandlerDoesNotBlockOthers(t *testing.T) {
	m := newTestManager()

	calls := 0
	m.Bus().Subscribe(ErrorOccurred, func(*Event) { panic("boom") })
	m.Bus().Subscribe(ErrorOccurred, func(*Event) { calls++ })

	m.EmitError("test", errors.New("failure"), map[string]interface{}{"step": 3})
	assert.Equal(t, 1, calls)
}

func TestBus_ConcurrentEmit(t *testing.T) {
	m := newTestManager()

	var mu sync.Mutex
	count := 0
	m.Bus().Subscribe(CacheCleaned, func(*Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.EmitTyped(CacheCleaned, "waveforms", &CacheCleanedData{Deleted: 1})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, count)
}

func TestEvent_GetTypedData(t *testing.T) {
	testCases := []struct {
		name string
		data EventData
	}{
		{"settings", &SettingsChangedData{Key: "n_qubit", Value: 3.0}},
		{"configuration", &ConfigurationChangedData{Reason: "api"}},
		{"calibration", &CalibrationReloadedData{Kind: "crosstalk", Path: "/tmp/m.txt"}},
		{"compiled", &WaveformsCompiledData{CompileID: "abc", Qubits: 2, Samples: 1000}},
		{"cleaned", &CacheCleanedData{Deleted: 4}},
		{"demodulated", &TracesDemodulatedData{Qubits: 2, Segments: 8}},
		{"status", &SystemStatusChangedData{CPUPercent: 12.5, MemoryPercent: 40, CacheEntries: 3}},
		{"error", &ErrorEventData{Error: "bad"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := toMap(tc.data)
			require.NoError(t, err)
			event := &Event{Type: tc.data.EventType(), Data: data}
			assert.Equal(t, tc.data, event.GetTypedData())
		})
	}

	assert.Nil(t, (&Event{Type: "UNKNOWN", Data: map[string]interface{}{}}).GetTypedData())
	assert.Nil(t, (&Event{Type: ErrorOccurred}).GetTypedData())
}

func TestManager_LogLevelFollowsEventType(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.InfoLevel)
	m := NewManager(NewBus(log), log)

	m.EmitTyped(WaveformsCompiled, "waveforms", &WaveformsCompiledData{CompileID: "abc"})
	assert.Empty(t, buf.String())

	m.EmitTyped(CacheCleaned, "waveforms", &CacheCleanedData{Deleted: 2})
	assert.Contains(t, buf.String(), `"event_type":"CACHE_CLEANED"`)
	assert.Contains(t, buf.String(), `"deleted":2`)

	buf.Reset()
	m.EmitError("readout", errors.New("boom"), nil)
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}
