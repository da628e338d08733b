package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/stories1001/publisher/internal/workflow"
)

// TransitionNotifier delivers the in-app notifications for one transition.
type TransitionNotifier interface {
	NotifyTransition(ctx context.Context, event workflow.TransitionEvent) error
}

// NotifyTransitionTask fans out notifications for a committed workflow transition.
type NotifyTransitionTask struct {
	Event workflow.TransitionEvent `json:"event"`
}

// Config returns the queue configuration for notification tasks.
func (t NotifyTransitionTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueNotifyTransition,
		MaxAttempts: 5,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// NotifyTransitionProcessor creates a processor function for NotifyTransitionTask.
func NotifyTransitionProcessor(notifier TransitionNotifier) backlite.QueueProcessor[NotifyTransitionTask] {
	return func(ctx context.Context, task NotifyTransitionTask) error {
		if notifier == nil {
			return fmt.Errorf("transition notifier not configured")
		}

		ev := task.Event
		if err := notifier.NotifyTransition(ctx, ev); err != nil {
			return fmt.Errorf("notify transition of submission %d: %w", ev.SubmissionID, err)
		}

		log.Printf("[TASK] Notified transition %s -> %s of submission %d", ev.FromStatus, ev.ToStatus, ev.SubmissionID)
		return nil
	}
}

// NewNotifyTransitionQueue creates a backlite queue for notification tasks.
func NewNotifyTransitionQueue(notifier TransitionNotifier) backlite.Queue {
	return backlite.NewQueue(NotifyTransitionProcessor(notifier))
}

// Enqueuer saves a task for later execution.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// QueueNotifier satisfies workflow.Notifier by queueing the fan-out instead of
// running it on the request path.
type QueueNotifier struct {
	queue Enqueuer
}

func NewQueueNotifier(queue Enqueuer) *QueueNotifier {
	return &QueueNotifier{queue: queue}
}

func (n *QueueNotifier) NotifyTransition(ctx context.Context, event workflow.TransitionEvent) error {
	_, err := n.queue.Enqueue(ctx, NotifyTransitionTask{Event: event})
	return err
}
