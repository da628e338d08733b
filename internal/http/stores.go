package http

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/stories1001/publisher/internal/config"
	auditdb "github.com/stories1001/publisher/internal/database/audit"
	"github.com/stories1001/publisher/internal/database/books"
	"github.com/stories1001/publisher/internal/entities"
	"github.com/stories1001/publisher/internal/revisions"
	"github.com/stories1001/publisher/internal/scheduler"
	"github.com/stories1001/publisher/internal/services"
	"github.com/stories1001/publisher/internal/settingsstore"
	"github.com/stories1001/publisher/internal/workflow"
)

// This file consolidates the interfaces HTTP controllers depend on.
// The concrete implementations live in services, workflow, settingsstore
// and scheduler; tests substitute fakes where a real database is overkill.

// SubmissionStore is the author and reviewer view of submissions.
type SubmissionStore interface {
	Create(actor services.Actor, in services.SubmissionInput) (*entities.Submission, error)
	Update(actor services.Actor, id uint, in services.SubmissionInput) (*entities.Submission, error)
	Delete(actor services.Actor, id uint) error
	Get(actor services.Actor, id uint) (*entities.Submission, error)
	ListOwn(actor services.Actor, opts services.SubmissionListOptions) ([]entities.Submission, int64, error)
	Queue(actor services.Actor, opts services.SubmissionListOptions) ([]entities.Submission, int64, error)
	Revisions(actor services.Actor, id uint) ([]entities.Revision, error)
	DiffRevisions(actor services.Actor, id uint, from, to int) (*revisions.Diff, error)
}

// WorkflowEngine executes and inspects transitions.
type WorkflowEngine interface {
	Execute(ctx context.Context, req workflow.TransitionRequest) (*workflow.TransitionResult, error)
	Preview(ctx context.Context, req workflow.TransitionRequest) (workflow.ValidationResult, entities.PublishingStatus, error)
	ExecuteBulk(ctx context.Context, reqs []workflow.TransitionRequest, dryRun bool) (*workflow.BulkResult, error)
	History(ctx context.Context, submissionID uint) ([]entities.WorkflowTransition, error)
	PossibleActions(sub *entities.Submission, actorID uint, role entities.UserRole) []workflow.AvailableAction
	Overdue(ctx context.Context) ([]workflow.OverdueItem, error)
	SendSLAReminders(ctx context.Context) (*workflow.SLAReport, error)
}

// LibraryReader serves the public library.
type LibraryReader interface {
	List(filter books.Filter) ([]entities.Book, int64, error)
	Get(id uint) (*entities.Book, error)
	Translations(id uint) ([]entities.Book, error)
}

// FeaturedStore manages featured book sets.
type FeaturedStore interface {
	Current() (*services.FeaturedView, error)
	History(limit int) ([]entities.FeaturedSet, error)
	SetManual(bookIDs []uint, durationDays int, creatorID uint) (*services.FeaturedView, error)
	Rotate(ctx context.Context, force bool) (*services.RotationResult, error)
}

// NotificationStore reads and acknowledges in-app notifications.
type NotificationStore interface {
	List(userID uint, unreadOnly bool, limit, offset int) ([]entities.Notification, int64, error)
	MarkRead(userID, id uint) error
	MarkAllRead(userID uint) (int64, error)
	UnreadCount(userID uint) (int64, error)
}

// TemplateStore manages rejection templates.
type TemplateStore interface {
	List(actor services.Actor, category entities.TemplateCategory, activeOnly bool) ([]entities.RejectionTemplate, error)
	Get(id uint) (*entities.RejectionTemplate, error)
	Create(actor services.Actor, in services.TemplateInput) (*entities.RejectionTemplate, error)
	Update(actor services.Actor, id uint, in services.TemplateInput) (*entities.RejectionTemplate, error)
	Delete(actor services.Actor, id uint) error
}

// AdminStore covers library bulk actions, role migrations and statistics.
type AdminStore interface {
	BulkLibraryAction(actor services.Actor, action services.BulkAction, bookIDs []uint, payload services.BulkPayload) (*services.BulkActionResult, error)
	MigrateRole(actor services.Actor, userID uint, toRole entities.UserRole, reason string) (*entities.RoleMigration, error)
	RollbackRole(actor services.Actor, migrationID uint) (*entities.RoleMigration, error)
	ListMigrations(userID uint, limit int) ([]entities.RoleMigration, error)
	ListUsers(role entities.UserRole) ([]entities.User, error)
	Stats(ctx context.Context) (*services.Stats, error)
}

// SettingsManager reads and writes database-stored settings.
type SettingsManager interface {
	GetWorkflowSettingsInfo() settingsstore.WorkflowSettingsInfo
	UpdateWorkflowSettings(u settingsstore.WorkflowSettingsUpdate) (settingsstore.WorkflowSettings, error)
	ClearWorkflowSettings() error
	GetSLALastRunAt() *time.Time
	GetFeaturedSettings() settingsstore.FeaturedSettings
	SetFeaturedSelectionMethod(method config.SelectionMethod) error
	SetFeaturedDurationDays(days int) error
}

// AuditReader lists audit events.
type AuditReader interface {
	GetEvents(filter auditdb.EventFilter) ([]entities.AuditEvent, int64, error)
	LogSettings(userID uint, action, description string)
}

// TaskQueue enqueues and inspects background tasks.
type TaskQueue interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// JobStatusProvider reports on the cron schedulers.
type JobStatusProvider interface {
	Statuses() []scheduler.Status
}

// JobTrigger runs a scheduled job on demand.
type JobTrigger interface {
	SLAReminders(ctx context.Context, trigger string) error
	RotateFeatured(ctx context.Context, force bool) error
	CleanupAudit(ctx context.Context, retentionDays int) error
}
