// Package base provides base implementation for scheduler jobs.
package base

import (
	"sync"
	"time"
)

// Status is the run history of a job as reported by the system API.
type Status struct {
	Runs      int64     `json:"runs"`
	Failures  int64     `json:"failures"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// JobBase records run outcomes. Jobs embed it so the scheduler can report on them.
type JobBase struct {
	mu     sync.Mutex
	status Status
}

// RecordRun stores the outcome of one run.
func (j *JobBase) RecordRun(at time.Time, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.Runs++
	j.status.LastRun = at
	j.status.LastError = ""
	if err != nil {
		j.status.Failures++
		j.status.LastError = err.Error()
	}
}

// Status returns a copy of the run history.
func (j *JobBase) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}
