package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_AppliesEmbeddedSchemas(t *testing.T) {
	testCases := []struct {
		name    string
		profile DatabaseProfile
		table   string
	}{
		{"config", ProfileStandard, "settings"},
		{"cache", ProfileCache, "compiled_waveforms"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := newTestDB(t, tc.name, tc.profile)
			require.NoError(t, db.Migrate())
			// idempotent
			require.NoError(t, db.Migrate())

			var count int
			err := db.Conn().QueryRow(
				"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", tc.table,
			).Scan(&count)
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := newTestDB(t, "scratch", ProfileStandard)
	assert.NoError(t, db.Migrate())
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newTestDB(t, "config", ProfileStandard)
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO settings (key, value, updated_at) VALUES ('n_qubit', '2', 0)")
		require.NoError(t, err)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM settings").Scan(&count))
	assert.Zero(t, count)
}

func TestWALCheckpointAndStats(t *testing.T) {
	db := newTestDB(t, "cache", ProfileCache)
	require.NoError(t, db.Migrate())

	assert.NoError(t, db.WALCheckpoint(""))
	assert.NoError(t, db.WALCheckpoint("PASSIVE"))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Positive(t, stats.PageSize)
	assert.Positive(t, stats.PageCount)
	assert.Equal(t, ProfileCache, db.Profile())
	assert.Equal(t, "cache", db.Name())
}

func TestIntegrityCheck(t *testing.T) {
	db := newTestDB(t, "config", ProfileStandard)
	require.NoError(t, db.Migrate())
	assert.NoError(t, db.IntegrityCheck(context.Background()))

	require.NoError(t, db.Close())
	assert.Error(t, db.IntegrityCheck(context.Background()))
}
