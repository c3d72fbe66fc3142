package waveforms

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
CREATE TABLE compiled_waveforms (
	key TEXT PRIMARY KEY,
	compile_id TEXT NOT NULL,
	data BLOB NOT NULL,
	expires_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX idx_compiled_waveforms_expires ON compiled_waveforms(expires_at);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	return db
}

func testResult(id string) *Result {
	w := newWaveforms(1, 4, 1e9)
	w.XYI[0][1] = 0.5
	w.ReadoutTrig[2] = 1
	return &Result{
		CompileID:  id,
		ConfigHash: "hash",
		Sequence:   "rabi",
		NQubit:     1,
		Samples:    4,
		Waveforms:  w,
		CompiledAt: time.Unix(1700000000, 0).UTC(),
	}
}

func TestStore_PutAndGet(t *testing.T) {
	store := NewStore(setupTestDB(t))

	require.NoError(t, store.Put("k1", testResult("id-1"), time.Hour))

	got, err := store.Get("k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "id-1", got.CompileID)
	assert.Equal(t, "rabi", got.Sequence)
	assert.Equal(t, 0.5, got.Waveforms.XYI[0][1])
	assert.Equal(t, 1.0, got.Waveforms.ReadoutTrig[2])
	assert.False(t, got.Cached)

	missing, err := store.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_PutReplaces(t *testing.T) {
	store := NewStore(setupTestDB(t))

	require.NoError(t, store.Put("k1", testResult("id-1"), time.Hour))
	require.NoError(t, store.Put("k1", testResult("id-2"), time.Hour))

	got, err := store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, "id-2", got.CompileID)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_ExpiredEntries(t *testing.T) {
	store := NewStore(setupTestDB(t))

	require.NoError(t, store.Put("old", testResult("id-old"), -time.Hour))
	require.NoError(t, store.Put("new", testResult("id-new"), time.Hour))

	got, err := store.Get("old")
	require.NoError(t, err)
	assert.Nil(t, got, "expired entries are not served")

	deleted, err := store.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_Clear(t *testing.T) {
	store := NewStore(setupTestDB(t))
	require.NoError(t, store.Put("a", testResult("1"), time.Hour))
	require.NoError(t, store.Put("b", testResult("2"), time.Hour))

	deleted, err := store.Clear()
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCleanupJob_Run(t *testing.T) {
	store := NewStore(setupTestDB(t))
	require.NoError(t, store.Put("old", testResult("id-old"), -time.Hour))

	job := NewCleanupJob(store, nil, testLogger())
	assert.Equal(t, "waveform_cache_cleanup", job.Name())
	require.NoError(t, job.Run())

	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}
