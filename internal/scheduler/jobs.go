package scheduler

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/tasks"
)

const (
	JobSLAReminders   = "sla_reminders"
	JobFeaturedRotate = "featured_rotation"
	JobAuditCleanup   = "audit_cleanup"

	// auditCleanupSchedule runs retention daily at 04:30.
	auditCleanupSchedule = "30 4 * * *"
)

// Enqueuer hands work to the background task queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// Runner runs a task's work either on the queue or inline.
type Runner struct {
	queue Enqueuer
	deps  tasks.Dependencies
}

// NewRunner creates a Runner. With a nil queue every job runs inline.
func NewRunner(queue Enqueuer, deps tasks.Dependencies) *Runner {
	return &Runner{queue: queue, deps: deps}
}

func (r *Runner) dispatch(ctx context.Context, task backlite.Task, inline func(ctx context.Context) error) error {
	if r.queue != nil {
		_, err := r.queue.Enqueue(ctx, task)
		return err
	}
	return inline(ctx)
}

// SLAReminders runs one SLA sweep.
func (r *Runner) SLAReminders(ctx context.Context, trigger string) error {
	task := tasks.SendSLARemindersTask{Trigger: trigger}
	return r.dispatch(ctx, task, func(ctx context.Context) error {
		return tasks.SendSLARemindersProcessor(r.deps.SLA, r.deps.SLARecorder)(ctx, task)
	})
}

// RotateFeatured rotates the featured set.
func (r *Runner) RotateFeatured(ctx context.Context, force bool) error {
	task := tasks.RotateFeaturedTask{Force: force}
	return r.dispatch(ctx, task, func(ctx context.Context) error {
		return tasks.RotateFeaturedProcessor(r.deps.Featured)(ctx, task)
	})
}

// CleanupAudit deletes audit events older than retentionDays.
func (r *Runner) CleanupAudit(ctx context.Context, retentionDays int) error {
	task := tasks.CleanupAuditEventsTask{RetentionDays: retentionDays}
	return r.dispatch(ctx, task, func(ctx context.Context) error {
		return tasks.CleanupAuditEventsProcessor(r.deps.AuditCleaner)(ctx, task)
	})
}

// Schedulers holds every periodic job of the service.
type Schedulers struct {
	SLA      *JobScheduler
	Featured *JobScheduler
	Audit    *JobScheduler
}

// New builds the schedulers from configuration.
func New(cfg *config.Config, runner *Runner) *Schedulers {
	return &Schedulers{
		SLA: NewJobScheduler(Job{
			Name:     JobSLAReminders,
			Schedule: cfg.Workflow.SLASchedule,
			Enabled:  cfg.Workflow.SLAEnabled,
			Run: func(ctx context.Context) error {
				return runner.SLAReminders(ctx, "cron")
			},
		}),
		Featured: NewJobScheduler(Job{
			Name:     JobFeaturedRotate,
			Schedule: cfg.Featured.RotationSchedule,
			Enabled:  cfg.Featured.RotationEnabled,
			Run: func(ctx context.Context) error {
				return runner.RotateFeatured(ctx, false)
			},
		}),
		Audit: NewJobScheduler(Job{
			Name:     JobAuditCleanup,
			Schedule: auditCleanupSchedule,
			Enabled:  cfg.Audit.RetentionDays > 0,
			Timeout:  30 * time.Minute,
			Run: func(ctx context.Context) error {
				return runner.CleanupAudit(ctx, cfg.Audit.RetentionDays)
			},
		}),
	}
}

func (s *Schedulers) all() []*JobScheduler {
	return []*JobScheduler{s.SLA, s.Featured, s.Audit}
}

// Start starts every enabled job.
func (s *Schedulers) Start(ctx context.Context) error {
	for _, js := range s.all() {
		if err := js.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops every job.
func (s *Schedulers) Stop() {
	for _, js := range s.all() {
		js.Stop()
	}
}

// Statuses reports every job.
func (s *Schedulers) Statuses() []Status {
	out := make([]Status, 0, 3)
	for _, js := range s.all() {
		out = append(out, js.Status())
	}
	return out
}
