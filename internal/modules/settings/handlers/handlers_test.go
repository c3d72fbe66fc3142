package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/qpulse/internal/events"
	"github.com/aristath/qpulse/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(t *testing.T) (http.Handler, *events.Bus) {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		description TEXT,
		updated_at INTEGER NOT NULL
	)`)
	require.NoError(t, err)

	bus := events.NewBus(logger)
	service := settings.NewService(settings.NewRepository(db, logger), logger)
	handler := NewHandler(service, events.NewManager(bus, logger), logger)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router, bus
}

func TestHandleUpdate_PersistsAndEmits(t *testing.T) {
	router, bus := setupTestRouter(t)

	var received []events.EventType
	bus.Subscribe(events.SettingsChanged, func(e *events.Event) { received = append(received, e.Type) })
	bus.Subscribe(events.ConfigurationChanged, func(e *events.Event) { received = append(received, e.Type) })

	body, _ := json.Marshal(settings.SettingUpdate{Value: 3})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("PUT", "/settings/n_qubit", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []events.EventType{events.SettingsChanged, events.ConfigurationChanged}, received)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/settings/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 3.0, response.Data["n_qubit"])
	assert.Equal(t, "rabi", response.Data["sequence"])
}

func TestHandleUpdate_Rejects(t *testing.T) {
	router, _ := setupTestRouter(t)

	testCases := []struct {
		name string
		key  string
		body string
	}{
		{"unknown key", "bogus", `{"value": 1}`},
		{"wrong type", "xy.width", `{"value": "wide"}`},
		{"malformed", "xy.width", `{"value":`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("PUT", "/settings/"+tc.key, bytes.NewBufferString(tc.body)))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleReset(t *testing.T) {
	router, bus := setupTestRouter(t)

	var resets int
	bus.Subscribe(events.SettingsChanged, func(e *events.Event) {
		if data, ok := e.GetTypedData().(*events.SettingsChangedData); ok && data.Reset {
			resets++
		}
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/settings/xy.width.2", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, resets)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/settings/bogus", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetSchema(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/settings/schema", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data []SchemaEntry `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Len(t, response.Data, len(settings.SettingDefaults))
	for i := 1; i < len(response.Data); i++ {
		assert.Less(t, response.Data[i-1].Key, response.Data[i].Key)
	}
}
