package tasks

import "github.com/mikestefanello/backlite"

// Queue names.
const (
	QueueNotifyTransition = "notify_transition"
	QueueSLAReminders     = "sla_reminders"
	QueueRotateFeatured   = "rotate_featured"
	QueueCleanupAudit     = "cleanup_audit"
)

// Dependencies are the services the background queues call into.
// A nil field leaves its queue registered but failing every task.
type Dependencies struct {
	Notifier     TransitionNotifier
	SLA          SLAReminderSender
	SLARecorder  SLARunRecorder
	Featured     FeaturedRotator
	AuditCleaner AuditEventCleaner
}

// Queues builds every queue the publisher runs.
func Queues(deps Dependencies) []backlite.Queue {
	return []backlite.Queue{
		NewNotifyTransitionQueue(deps.Notifier),
		NewSendSLARemindersQueue(deps.SLA, deps.SLARecorder),
		NewRotateFeaturedQueue(deps.Featured),
		NewCleanupAuditEventsQueue(deps.AuditCleaner),
	}
}
