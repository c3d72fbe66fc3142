package reliability

import (
	"testing"

	testhelpers "github.com/aristath/qpulse/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaintenanceJob_Name(t *testing.T) {
	assert.Equal(t, "database_maintenance", NewMaintenanceJob(zerolog.Nop()).Name())
}

func TestMaintenanceJob_Run(t *testing.T) {
	cacheDB := testhelpers.NewTestDB(t, "cache")
	configDB := testhelpers.NewTestDB(t, "config")

	_, err := cacheDB.Conn().Exec(
		`INSERT INTO compiled_waveforms (key, compile_id, data, expires_at, created_at) VALUES ('k', 'c', x'00', 0, 0)`)
	require.NoError(t, err)

	job := NewMaintenanceJob(zerolog.Nop(), cacheDB, nil, configDB)
	assert.NoError(t, job.Run())
	assert.Equal(t, 1, testhelpers.RowCount(t, cacheDB, "compiled_waveforms"))
}

func TestMaintenanceJob_ClosedDatabaseFails(t *testing.T) {
	db := testhelpers.NewTestDB(t, "cache")
	require.NoError(t, db.Close())

	assert.Error(t, NewMaintenanceJob(zerolog.Nop(), db).Run())
}
