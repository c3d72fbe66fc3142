package settings

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingDefaults_StringSettingsAreStrings(t *testing.T) {
	for key := range StringSettings {
		val, exists := SettingDefaults[key]
		require.True(t, exists, "%s must exist in defaults", key)
		_, ok := val.(string)
		assert.True(t, ok, "%s must default to a string", key)
	}
}

func TestSettingDefaults_NumericSettingsAreFloats(t *testing.T) {
	for key, val := range SettingDefaults {
		if StringSettings[key] {
			continue
		}
		_, ok := val.(float64)
		assert.True(t, ok, "%s must be float64", key)
	}
}

func TestSettingDescriptions_HaveDefaults(t *testing.T) {
	for key, desc := range SettingDescriptions {
		_, exists := SettingDefaults[key]
		assert.True(t, exists, "description for unknown setting %s", key)
		assert.NotEmpty(t, desc)
	}
}

func TestSnapshot_TypedGetters(t *testing.T) {
	snap := NewSnapshot(map[string]interface{}{
		"n_qubit":      3,
		"xy.use_drag":  true,
		"xy.width.2":   20e-9,
		"rb.seed":      "7",
		"sequence":     "cpmg",
		"cpmg.n_pulse": 2.5,
	})

	n, err := snap.Int("n_qubit")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	drag, err := snap.Bool("xy.use_drag")
	require.NoError(t, err)
	assert.True(t, drag)

	seed, err := snap.Int("rb.seed")
	require.NoError(t, err)
	assert.Equal(t, 7, seed)

	name, err := snap.String("sequence")
	require.NoError(t, err)
	assert.Equal(t, "cpmg", name)

	_, err = snap.Int("cpmg.n_pulse")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = snap.Float("does.not.exist")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = snap.Float("sequence")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestSnapshot_PerQubitOverride(t *testing.T) {
	snap := NewSnapshot(map[string]interface{}{"xy.width.2": 20e-9})

	w1, err := snap.FloatFor("xy.width", 1)
	require.NoError(t, err)
	w2, err := snap.FloatFor("xy.width", 2)
	require.NoError(t, err)

	assert.Equal(t, 10e-9, w1)
	assert.Equal(t, 20e-9, w2)
}

func TestSnapshot_WithDoesNotMutate(t *testing.T) {
	a := NewSnapshot(nil)
	b := a.With("n_qubit", 4)

	n, _ := a.Int("n_qubit")
	assert.Equal(t, 2, n)
	n, _ = b.Int("n_qubit")
	assert.Equal(t, 4, n)
}

func TestSnapshot_Hash(t *testing.T) {
	a := NewSnapshot(map[string]interface{}{"n_qubit": 3.0})
	b := NewSnapshot(map[string]interface{}{"n_qubit": 3})
	c := NewSnapshot(map[string]interface{}{"n_qubit": 4.0})

	assert.Len(t, a.Hash(), 32)
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestBaseKey(t *testing.T) {
	testCases := []struct {
		key   string
		base  string
		qubit int
	}{
		{"xy.width", "xy.width", 0},
		{"xy.width.3", "xy.width", 3},
		{"cz.phi1", "cz.phi1", 0},
		{"readout.frequency.0", "readout.frequency.0", 0},
	}
	for _, tc := range testCases {
		t.Run(tc.key, func(t *testing.T) {
			base, qubit := BaseKey(tc.key)
			assert.Equal(t, tc.base, base)
			assert.Equal(t, tc.qubit, qubit)
		})
	}

	assert.True(t, IsKnownKey("readout.frequency.4"))
	assert.False(t, IsKnownKey("readout.frequencies"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("xy.width.2", 12e-9))
	assert.NoError(t, Validate("sequence", "cpmg"))
	assert.ErrorIs(t, Validate("xy.width", "wide"), ErrInvalidValue)
	assert.ErrorIs(t, Validate("no_such_key", 1.0), ErrInvalidValue)
}

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
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

	return NewRepository(db, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestService_PersistsOverrides(t *testing.T) {
	svc := NewService(newTestRepository(t), zerolog.New(nil).Level(zerolog.Disabled))

	require.NoError(t, svc.Set("n_qubit", 4.0))
	require.NoError(t, svc.Set("sequence", "cpmg"))
	assert.ErrorIs(t, svc.Set("n_qubit", "four"), ErrInvalidValue)

	snap, err := svc.Snapshot()
	require.NoError(t, err)
	n, _ := snap.Int("n_qubit")
	assert.Equal(t, 4, n)
	name, _ := snap.String("sequence")
	assert.Equal(t, "cpmg", name)

	resolved, err := svc.Resolve(map[string]interface{}{"n_qubit": 1.0})
	require.NoError(t, err)
	n, _ = resolved.Int("n_qubit")
	assert.Equal(t, 1, n)

	_, err = svc.Resolve(map[string]interface{}{"bogus": 1.0})
	assert.ErrorIs(t, err, ErrInvalidValue)

	require.NoError(t, svc.Reset("n_qubit"))
	snap, err = svc.Snapshot()
	require.NoError(t, err)
	n, _ = snap.Int("n_qubit")
	assert.Equal(t, 2, n)
}
