package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/qpulse/internal/modules/readout"
	"github.com/aristath/qpulse/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver struct{}

func (staticResolver) Resolve(overrides map[string]interface{}) (settings.Snapshot, error) {
	return settings.NewSnapshot(overrides), nil
}

func setupTestRouter() http.Handler {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(readout.NewService(nil, logger), staticResolver{}, logger)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func TestHandleDemodulate(t *testing.T) {
	n := 1001
	y := make([]float64, n)
	for k := range y {
		y[k] = 0.4 * math.Cos(2*math.Pi*50e6*float64(k)*1e-9+0.25)
	}
	body, _ := json.Marshal(DemodulateRequest{
		Trace: readout.Trace{Y: y, DT: 1e-9},
		Settings: map[string]interface{}{
			"n_qubit":           1,
			"readout.frequency": 50e6,
			"readout.length":    1e-6,
		},
	})

	w := httptest.NewRecorder()
	setupTestRouter().ServeHTTP(w, httptest.NewRequest("POST", "/readout/demodulate", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data []QubitResult `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response.Data, 1)
	assert.Equal(t, 1, response.Data[0].Qubit)
	assert.InDelta(t, 0.4, response.Data[0].Amplitude[0], 1e-3)
	assert.InDelta(t, 0.25, response.Data[0].Phase[0], 1e-3)
}

func TestHandleDemodulate_BadRequests(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"malformed", `{"trace":`},
		{"iq mismatch", `{"trace":{"y":[1,2,3],"q":[1],"dt":1e-9}}`},
		{"no sample period", `{"trace":{"y":[1,2,3]}}`},
		{"zero segments", `{"trace":{"y":[1,2,3],"dt":1e-9},"settings":{"readout.segments":0}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			setupTestRouter().ServeHTTP(w, httptest.NewRequest("POST", "/readout/demodulate", bytes.NewBufferString(tc.body)))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
