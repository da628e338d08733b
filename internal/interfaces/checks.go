package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/stories1001/publisher/internal/audit"
	"github.com/stories1001/publisher/internal/auth"
	"github.com/stories1001/publisher/internal/http"
	"github.com/stories1001/publisher/internal/scheduler"
	"github.com/stories1001/publisher/internal/services"
	"github.com/stories1001/publisher/internal/settingsstore"
	"github.com/stories1001/publisher/internal/tasks"
	"github.com/stories1001/publisher/internal/workflow"
)

// =============================================================================
// HTTP Stores
// =============================================================================

var _ http.SubmissionStore = (*services.SubmissionService)(nil)
var _ http.WorkflowEngine = (*workflow.Manager)(nil)
var _ http.LibraryReader = (*services.LibraryService)(nil)
var _ http.FeaturedStore = (*services.FeaturedService)(nil)
var _ http.NotificationStore = (*services.NotificationService)(nil)
var _ http.TemplateStore = (*services.TemplateService)(nil)
var _ http.AdminStore = (*services.AdminService)(nil)
var _ http.SettingsManager = (*settingsstore.SettingsStore)(nil)
var _ http.AuditReader = (*audit.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ http.TaskQueue = (*tasks.Client)(nil)
var _ http.JobStatusProvider = (*scheduler.Schedulers)(nil)
var _ http.JobTrigger = (*scheduler.Runner)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ tasks.Enqueuer = (*tasks.Client)(nil)

var _ tasks.TransitionNotifier = (*services.NotificationService)(nil)
var _ tasks.SLAReminderSender = (*workflow.Manager)(nil)
var _ tasks.SLARunRecorder = (*settingsstore.SettingsStore)(nil)
var _ tasks.FeaturedRotator = (*services.FeaturedService)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// Workflow
// =============================================================================

// Notifier implementations: direct fan-out and queued fan-out
var _ workflow.Notifier = (*services.NotificationService)(nil)
var _ workflow.Notifier = (*tasks.QueueNotifier)(nil)

var _ workflow.SettingsProvider = (*settingsstore.SettingsStore)(nil)
var _ services.FeaturedSettingsProvider = (*settingsstore.SettingsStore)(nil)

// =============================================================================
// Auth
// =============================================================================

var _ auth.Auditor = (*audit.Service)(nil)
var _ auth.LockoutAuditor = (*audit.Service)(nil)
