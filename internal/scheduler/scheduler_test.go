package scheduler

import (
	"errors"
	"testing"

	"github.com/aristath/qpulse/internal/scheduler/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	base.JobBase
	name string
	runs int
	err  error
}

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func (j *countingJob) Name() string { return j.name }

func TestScheduler_AddJobRejectsBadSchedule(t *testing.T) {
	s := New(testLogger())
	assert.Error(t, s.AddJob("not a schedule", &countingJob{name: "bad"}))
	assert.Empty(t, s.Jobs())
}

func TestScheduler_RunByNameRecordsStatus(t *testing.T) {
	s := New(testLogger())
	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", err: errors.New("boom")}
	require.NoError(t, s.AddJob("0 0 * * * *", ok))
	require.NoError(t, s.AddJob("@every 1h", failing))

	found, err := s.RunByName("ok")
	assert.True(t, found)
	assert.NoError(t, err)

	found, err = s.RunByName("failing")
	assert.True(t, found)
	assert.EqualError(t, err, "boom")

	found, err = s.RunByName("missing")
	assert.False(t, found)
	assert.NoError(t, err)

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "failing", jobs[0].Name)
	assert.Equal(t, int64(1), jobs[0].Status.Failures)
	assert.Equal(t, "boom", jobs[0].Status.LastError)
	assert.Equal(t, "ok", jobs[1].Name)
	assert.Equal(t, "0 0 * * * *", jobs[1].Schedule)
	assert.Equal(t, int64(1), jobs[1].Status.Runs)
	assert.Empty(t, jobs[1].Status.LastError)
	assert.Equal(t, 1, ok.runs)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.AddJob("@every 1h", &countingJob{name: "idle"}))
	s.Start()
	assert.False(t, s.Jobs()[0].Next.IsZero())
	s.Stop()
}
