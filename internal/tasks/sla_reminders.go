package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/stories1001/publisher/internal/workflow"
)

// SLAReminderSender sweeps overdue submissions and notifies the people responsible.
type SLAReminderSender interface {
	SendSLAReminders(ctx context.Context) (*workflow.SLAReport, error)
}

// SLARunRecorder stores when the last sweep finished.
type SLARunRecorder interface {
	SetSLALastRunAt(at time.Time) error
}

// SendSLARemindersTask runs one SLA sweep.
type SendSLARemindersTask struct {
	// Trigger names who asked for the sweep, e.g. "cron" or "admin".
	Trigger string `json:"trigger"`
}

// Config returns the queue configuration for SLA sweeps.
func (t SendSLARemindersTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueSLAReminders,
		MaxAttempts: 2,
		Backoff:     5 * time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   72 * time.Hour,
			OnlyFailed: false,
		},
	}
}

// SendSLARemindersProcessor creates a processor function for SendSLARemindersTask.
// recorder may be nil.
func SendSLARemindersProcessor(sender SLAReminderSender, recorder SLARunRecorder) backlite.QueueProcessor[SendSLARemindersTask] {
	return func(ctx context.Context, task SendSLARemindersTask) error {
		if sender == nil {
			return fmt.Errorf("SLA reminder sender not configured")
		}

		report, err := sender.SendSLAReminders(ctx)
		if err != nil {
			return fmt.Errorf("send SLA reminders: %w", err)
		}

		if recorder != nil {
			if err := recorder.SetSLALastRunAt(report.CheckedAt); err != nil {
				log.Printf("[TASK] Failed to record SLA run time: %v", err)
			}
		}

		log.Printf("[TASK] SLA sweep (%s): %d overdue, %d reminders sent, %d throttled",
			task.Trigger, report.Overdue, report.RemindersSent, report.Throttled)
		return nil
	}
}

// NewSendSLARemindersQueue creates a backlite queue for SLA sweeps.
func NewSendSLARemindersQueue(sender SLAReminderSender, recorder SLARunRecorder) backlite.Queue {
	return backlite.NewQueue(SendSLARemindersProcessor(sender, recorder))
}
