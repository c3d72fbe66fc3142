package waveforms

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/qpulse/internal/events"
	"github.com/aristath/qpulse/internal/modules/conditioning"
	"github.com/aristath/qpulse/internal/modules/sequences"
	"github.com/aristath/qpulse/internal/modules/settings"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

type fakeCalibration struct {
	tfPaths []string
	xtPaths []string
	xtCoup  [][]int
}

func (f *fakeCalibration) Predistorter(_ context.Context, path string, tolerance float64) (*conditioning.IQPredistorter, error) {
	f.tfPaths = append(f.tfPaths, path)
	return conditioning.NewIQPredistorter(conditioning.TransferFunction{
		Freq: []float64{-1e9, 1e9},
		HI:   []complex128{1, 1},
		HQ:   []complex128{1, 1},
	}, tolerance)
}

func (f *fakeCalibration) Crosstalk(_ context.Context, path string, coupling []int) (*conditioning.Crosstalk, error) {
	f.xtPaths = append(f.xtPaths, path)
	f.xtCoup = append(f.xtCoup, coupling)
	return conditioning.NewCrosstalk([][]float64{{1}}, coupling)
}

func newTestService(cal CalibrationProvider, em *events.Manager) *Service {
	log := testLogger()
	seqService := sequences.NewService(sequences.NewPopulatedRegistry(), log)
	return NewService(seqService, cal, em, log)
}

func testSnapshot(overrides map[string]interface{}) settings.Snapshot {
	base := map[string]interface{}{
		"n_qubit":     1,
		"sample_rate": 1e9,
		"min_points":  200,
	}
	for k, v := range overrides {
		base[k] = v
	}
	return settings.NewSnapshot(base)
}

func TestService_CompileCachesBySnapshot(t *testing.T) {
	s := newTestService(nil, nil)
	ctx := context.Background()

	first, err := s.Compile(ctx, testSnapshot(nil))
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "rabi", first.Sequence)
	assert.Equal(t, 200, first.Samples)
	assert.Len(t, first.Steps, 1)
	assert.NotEmpty(t, first.CompileID)

	second, err := s.Compile(ctx, testSnapshot(nil))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.CompileID, second.CompileID)
	assert.False(t, first.Cached, "cached copies do not alter the stored result")

	other, err := s.Compile(ctx, testSnapshot(map[string]interface{}{"xy.amplitude": 0.25}))
	require.NoError(t, err)
	assert.False(t, other.Cached)
	assert.NotEqual(t, first.ConfigHash, other.ConfigHash)

	stats := s.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestService_CompileEmptyPulseTrain(t *testing.T) {
	s := newTestService(nil, nil)

	res, err := s.Compile(context.Background(), testSnapshot(map[string]interface{}{
		"n_qubit":             2,
		"sequence":            "pulse_train",
		"pulse_train.n_pulse": 0,
	}))
	require.NoError(t, err)
	assert.Empty(t, res.Steps)
	assert.Equal(t, 200, res.Samples)
	require.Equal(t, 200, res.Waveforms.Len())

	for name, ch := range res.Waveforms.Channels() {
		for k, v := range ch {
			require.Zero(t, v, "%s[%d]", name, k)
		}
	}
}

func TestService_InvalidateOnConfigurationChanged(t *testing.T) {
	log := testLogger()
	em := events.NewManager(events.NewBus(log), log)
	s := newTestService(nil, em)
	unsubscribe := s.Subscribe(em.Bus())
	defer unsubscribe()

	var compiled []*events.Event
	em.Bus().Subscribe(events.WaveformsCompiled, func(e *events.Event) { compiled = append(compiled, e) })

	ctx := context.Background()
	first, err := s.Compile(ctx, testSnapshot(nil))
	require.NoError(t, err)

	em.EmitTyped(events.ConfigurationChanged, "test", &events.ConfigurationChangedData{Reason: "calibration file replaced"})
	assert.Equal(t, 0, s.Stats().Entries)
	assert.Equal(t, int64(1), s.Stats().Invalidated)

	second, err := s.Compile(ctx, testSnapshot(nil))
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.NotEqual(t, first.CompileID, second.CompileID)

	require.Len(t, compiled, 2)
	assert.Equal(t, second.CompileID, compiled[1].Data["compile_id"])
}

func TestService_PersistentStore(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	a := newTestService(nil, nil)
	a.SetStore(store, time.Hour)
	first, err := a.Compile(ctx, testSnapshot(nil))
	require.NoError(t, err)

	b := newTestService(nil, nil)
	b.SetStore(store, time.Hour)
	second, err := b.Compile(ctx, testSnapshot(nil))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.CompileID, second.CompileID)
	assert.Equal(t, first.Waveforms.XYI, second.Waveforms.XYI)
	assert.Equal(t, int64(1), b.Stats().StoreHits)

	b.Invalidate("test")
	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_LoadsCalibration(t *testing.T) {
	cal := &fakeCalibration{}
	s := newTestService(cal, nil)

	_, err := s.Compile(context.Background(), testSnapshot(map[string]interface{}{
		"n_qubit":                           2,
		"predistortion.xy_enabled":          1,
		"predistortion.transfer_function.2": "tf_q2.txt",
		"crosstalk.enabled":                 1,
		"crosstalk.matrix_path":             "s3://lab/crosstalk.txt",
		"crosstalk.coupling":                "2",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"tf_q2.txt"}, cal.tfPaths)
	assert.Equal(t, []string{"s3://lab/crosstalk.txt"}, cal.xtPaths)
	assert.Equal(t, [][]int{{1}}, cal.xtCoup)
}

func TestService_CalibrationErrors(t *testing.T) {
	testCases := []struct {
		name      string
		cal       CalibrationProvider
		overrides map[string]interface{}
	}{
		{
			name: "no calibration source",
			overrides: map[string]interface{}{
				"predistortion.xy_enabled":        1,
				"predistortion.transfer_function": "tf.txt",
			},
		},
		{
			name: "coupling outside register",
			cal:  &fakeCalibration{},
			overrides: map[string]interface{}{
				"crosstalk.enabled":     1,
				"crosstalk.matrix_path": "xt.txt",
				"crosstalk.coupling":    "1,3",
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestService(tc.cal, nil)
			_, err := s.Compile(context.Background(), testSnapshot(tc.overrides))
			assert.ErrorIs(t, err, settings.ErrInvalidValue)
		})
	}
}

func TestService_EmptyCalibrationPathsPassThrough(t *testing.T) {
	s := newTestService(nil, nil)
	r, err := s.Compile(context.Background(), testSnapshot(map[string]interface{}{
		"predistortion.xy_enabled": 1,
		"crosstalk.enabled":        1,
	}))
	require.NoError(t, err)
	assert.NotNil(t, r.Waveforms)
}

func TestService_BuildErrorsAreReturned(t *testing.T) {
	s := newTestService(nil, nil)
	_, err := s.Compile(context.Background(), testSnapshot(map[string]interface{}{"sequence": "unknown"}))
	assert.ErrorIs(t, err, sequences.ErrUnknownGenerator)

	_, err = s.Compile(context.Background(), testSnapshot(map[string]interface{}{"xy.frequency": 700e6}))
	assert.ErrorIs(t, err, ErrFrequencyOutOfBand)

	assert.Zero(t, s.Stats().Entries)
}
