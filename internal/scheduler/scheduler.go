// Package scheduler runs the publisher's periodic jobs on cron schedules:
// the SLA reminder sweep, featured rotation and audit retention.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RunFunc performs one run of a job.
type RunFunc func(ctx context.Context) error

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Schedule string
	Enabled  bool
	// Timeout bounds a single run. Zero means 10 minutes.
	Timeout time.Duration
	Run     RunFunc
}

// JobScheduler runs a single Job on its cron schedule and never overlaps runs.
type JobScheduler struct {
	job Job

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isBusy     bool
	lastRunAt  *time.Time
	lastErr    error
	cancelFunc context.CancelFunc
}

// NewJobScheduler creates a scheduler for job. It does nothing until Start.
func NewJobScheduler(job Job) *JobScheduler {
	if job.Timeout <= 0 {
		job.Timeout = 10 * time.Minute
	}
	return &JobScheduler{
		job:  job,
		cron: cron.New(cron.WithParser(parser)),
	}
}

// Name returns the job name.
func (s *JobScheduler) Name() string {
	return s.job.Name
}

// Start begins the schedule if the job is enabled.
func (s *JobScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.job.Enabled {
		log.Printf("[SCHEDULER] %s: disabled", s.job.Name)
		return nil
	}

	if err := ValidateCronSchedule(s.job.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s' for %s: %w", s.job.Schedule, s.job.Name, err)
	}

	entryID, err := s.cron.AddFunc(s.job.Schedule, s.runJob)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", s.job.Name, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := GetNextRunTime(s.job.Schedule, time.Now())
	log.Printf("[SCHEDULER] %s: started with schedule '%s' (%s). Next run: %v",
		s.job.Name, s.job.Schedule, GetCronDescription(s.job.Schedule), nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running job to finish and stops the schedule.
func (s *JobScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron.Remove(s.entryID)
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("[SCHEDULER] %s: stopped", s.job.Name)
}

// Reschedule restarts the job with a new schedule.
func (s *JobScheduler) Reschedule(schedule string, enabled bool) error {
	if enabled {
		if err := ValidateCronSchedule(schedule); err != nil {
			return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
		}
	}

	s.Stop()

	s.mu.Lock()
	s.job.Schedule = schedule
	s.job.Enabled = enabled
	s.mu.Unlock()

	return s.Start(context.Background())
}

// RunNow triggers an immediate run in the background.
func (s *JobScheduler) RunNow() {
	go s.runJob()
}

// IsRunning reports whether the schedule is active.
func (s *JobScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsBusy reports whether a run is in progress.
func (s *JobScheduler) IsBusy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isBusy
}

// LastRun returns when the last run finished and its error.
func (s *JobScheduler) LastRun() (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRunAt, s.lastErr
}

// GetNextRunTime returns when the job fires next, or nil when stopped.
func (s *JobScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *JobScheduler) runJob() {
	s.mu.Lock()
	if s.isBusy {
		s.mu.Unlock()
		log.Printf("[SCHEDULER] %s: skipped (already running)", s.job.Name)
		return
	}
	s.isBusy = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.job.Timeout)
	defer cancel()

	start := time.Now()
	err := s.job.Run(ctx)
	if err != nil {
		log.Printf("[SCHEDULER] %s: failed after %v: %v", s.job.Name, time.Since(start).Round(time.Millisecond), err)
	}

	finished := time.Now()
	s.mu.Lock()
	s.isBusy = false
	s.lastRunAt = &finished
	s.lastErr = err
	s.mu.Unlock()
}

// Status describes a job for the admin API.
type Status struct {
	Name        string     `json:"name"`
	Schedule    string     `json:"schedule"`
	Description string     `json:"description"`
	Enabled     bool       `json:"enabled"`
	Running     bool       `json:"running"`
	Busy        bool       `json:"busy"`
	NextRunAt   *time.Time `json:"next_run_at,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// Status returns a snapshot of the job.
func (s *JobScheduler) Status() Status {
	next := s.GetNextRunTime()

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Name:        s.job.Name,
		Schedule:    s.job.Schedule,
		Description: GetCronDescription(s.job.Schedule),
		Enabled:     s.job.Enabled,
		Running:     s.isRunning,
		Busy:        s.isBusy,
		NextRunAt:   next,
		LastRunAt:   s.lastRunAt,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
