package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/qpulse/internal/config"
	"github.com/aristath/qpulse/internal/di"
	"github.com/aristath/qpulse/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

func setupTestServer(t *testing.T) (*Server, *di.Container) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DataDir:        dir,
		CalibrationDir: dir,
		Port:           8001,
		DevMode:        true,
		Cache: config.CacheConfig{
			Enabled:         true,
			TTL:             time.Hour,
			CleanupSchedule: "0 0 * * * *",
		},
	}
	log := zerolog.New(nil).Level(zerolog.Disabled)

	container, _, err := di.Wire(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	return New(Config{Log: log, Config: cfg, Container: container}), container
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	s, _ := setupTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "qpulse", body["service"])
}

func TestSystemStatus_ReportsCacheStats(t *testing.T) {
	s, _ := setupTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("POST", "/api/waveforms/compile?summary=true", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/system/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var status SystemStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
	require.NotNil(t, status.WaveformCache)
	assert.Equal(t, 1, status.WaveformCache.Entries)
	assert.Equal(t, int64(1), status.WaveformCache.Misses)
}

func TestDatabaseStats(t *testing.T) {
	s, _ := setupTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/system/database/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var stats DatabaseStatsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	require.Len(t, stats.Databases, 2)
	assert.Equal(t, "config", stats.Databases[0].Name)
	assert.Equal(t, "cache", stats.Databases[1].Name)
}

func TestJobs_ListAndTrigger(t *testing.T) {
	s, _ := setupTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/system/jobs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["jobs"], 3)

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("POST", "/api/system/jobs/waveform_cache_cleanup/run", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("POST", "/api/system/jobs/no_such_job/run", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSettingsChangeInvalidatesCompiledWaveforms(t *testing.T) {
	s, container := setupTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest("POST", "/api/waveforms/compile?summary=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, container.WaveformService.Stats().Entries)

	w = httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/api/settings/spacing", bytes.NewBufferString(`{"value":30e-9}`))
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Zero(t, container.WaveformService.Stats().Entries)
	count, err := container.WaveformStore.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEventsWebSocket_ReceivesCompileEvent(t *testing.T) {
	s, _ := setupTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events/ws?types=" + string(events.WaveformsCompiled)
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	_, msg, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"connected"`)

	resp, err := http.Post(ts.URL+"/api/waveforms/compile?summary=true", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, msg, err = conn.Read(ctx)
	require.NoError(t, err)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, string(events.WaveformsCompiled), event["type"])
	assert.Equal(t, "rabi", event["data"].(map[string]interface{})["sequence"])
}

func TestParseTypes(t *testing.T) {
	assert.Equal(t, events.AllTypes, parseTypes(""))
	assert.Equal(t,
		[]events.EventType{events.CacheCleaned, events.WaveformsCompiled},
		parseTypes("CACHE_CLEANED, WAVEFORMS_COMPILED,"),
	)
}
