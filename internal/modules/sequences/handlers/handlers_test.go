package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/qpulse/internal/modules/sequences"
	"github.com/aristath/qpulse/internal/modules/settings"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver struct{}

func (staticResolver) Resolve(overrides map[string]interface{}) (settings.Snapshot, error) {
	for k := range overrides {
		if !settings.IsKnownKey(k) {
			return settings.Snapshot{}, settings.ErrInvalidValue
		}
	}
	return settings.NewSnapshot(overrides), nil
}

func setupTestHandler() *Handler {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	service := sequences.NewService(sequences.NewPopulatedRegistry(), logger)
	return NewHandler(service, staticResolver{}, logger)
}

func TestHandleListGenerators(t *testing.T) {
	handler := setupTestHandler()

	req := httptest.NewRequest("GET", "/api/sequences", nil)
	w := httptest.NewRecorder()

	handler.HandleListGenerators(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	data := response["data"].(map[string]interface{})
	assert.Len(t, data["generators"], 5)
	assert.Equal(t, float64(sequences.ContractVersion), data["contract_version"])
	assert.Contains(t, response, "metadata")
}

func TestHandleBuild(t *testing.T) {
	handler := setupTestHandler()

	body, _ := json.Marshal(map[string]interface{}{
		"settings": map[string]interface{}{
			"sequence":            "pulse_train",
			"pulse_train.n_pulse": 3,
			"n_qubit":             1,
		},
	})
	req := httptest.NewRequest("POST", "/api/sequences/build", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleBuild(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data struct {
			Sequence string                  `json:"sequence"`
			NQubit   int                     `json:"n_qubit"`
			Steps    []sequences.StepSummary `json:"steps"`
		} `json:"data"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	assert.Equal(t, "pulse_train", response.Data.Sequence)
	assert.Equal(t, 1, response.Data.NQubit)
	require.Len(t, response.Data.Steps, 3)
	assert.Equal(t, []string{"Xp"}, response.Data.Steps[0].Gates)
	assert.Len(t, response.Metadata["config_hash"], 32)
}

func TestHandleBuild_EmptyBodyUsesStoredSettings(t *testing.T) {
	handler := setupTestHandler()

	req := httptest.NewRequest("POST", "/api/sequences/build", nil)
	w := httptest.NewRecorder()

	handler.HandleBuild(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleBuild_Errors(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"malformed body", `{"settings":`},
		{"unknown key", `{"settings":{"bogus":1}}`},
		{"unknown generator", `{"settings":{"sequence":"nope"}}`},
		{"register too large", `{"settings":{"n_qubit":42}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := setupTestHandler()
			req := httptest.NewRequest("POST", "/api/sequences/build", bytes.NewBufferString(tc.body))
			w := httptest.NewRecorder()

			handler.HandleBuild(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
