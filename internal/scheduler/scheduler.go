// Package scheduler runs the service's periodic maintenance jobs on cron schedules.
package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/aristath/qpulse/internal/scheduler/base"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Recorder is implemented by jobs that embed base.JobBase.
type Recorder interface {
	RecordRun(at time.Time, err error)
	Status() base.Status
}

// JobInfo describes a registered job.
type JobInfo struct {
	Name     string      `json:"name"`
	Schedule string      `json:"schedule"`
	Next     time.Time   `json:"next,omitempty"`
	Status   base.Status `json:"status"`
}

type entry struct {
	id       cron.EntryID
	schedule string
	job      Job
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu      sync.Mutex
	entries []entry
}

// New creates a new scheduler. Schedules use six fields, seconds first.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 0 * * * *"        - Every hour
//   - "0 */15 * * * *"     - Every 15 minutes
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	id, err := s.cron.AddFunc(schedule, func() {
		s.run(job)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry{id: id, schedule: schedule, job: job})
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

func (s *Scheduler) run(job Job) error {
	s.log.Debug().Str("job", job.Name()).Msg("Running job")

	err := job.Run()
	if rec, ok := job.(Recorder); ok {
		rec.RecordRun(time.Now(), err)
	}

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Msg("Job failed")
	} else {
		s.log.Debug().Str("job", job.Name()).Msg("Job completed")
	}
	return err
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.run(job)
}

// RunByName executes the registered job with the given name immediately.
// It reports false when no such job is registered.
func (s *Scheduler) RunByName(name string) (bool, error) {
	s.mu.Lock()
	var job Job
	for _, e := range s.entries {
		if e.job.Name() == name {
			job = e.job
			break
		}
	}
	s.mu.Unlock()

	if job == nil {
		return false, nil
	}
	return true, s.RunNow(job)
}

// Jobs lists the registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.entries))
	for _, e := range s.entries {
		info := JobInfo{
			Name:     e.job.Name(),
			Schedule: e.schedule,
			Next:     s.cron.Entry(e.id).Next,
		}
		if rec, ok := e.job.(Recorder); ok {
			info.Status = rec.Status()
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
