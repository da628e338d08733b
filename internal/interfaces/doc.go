// Package interfaces documents the core abstractions used throughout the publisher.
//
// Consumers declare the narrow interface they need next to the code that
// uses it. The concrete services live in internal/services, internal/workflow
// and friends. checks.go pins every implementation to its interfaces.
//
// # Interface Categories
//
// ## HTTP Stores (internal/http/stores.go)
//
//   - SubmissionStore: drafts, revisions and the review queue
//   - WorkflowEngine: transitions, previews, bulk runs and SLA sweeps
//   - LibraryReader, FeaturedStore: the public library
//   - NotificationStore, TemplateStore, AdminStore, SettingsManager, AuditReader
//   - TaskQueue, JobStatusProvider, JobTrigger: background work
//
// ## Workflow Hooks (internal/workflow/manager.go)
//
//   - Notifier: receives every committed transition. NotificationService
//     fans out inline; tasks.QueueNotifier defers it to the queue.
//   - SettingsProvider: effective workflow mode and deadlines
//
// ## Queue Processors (internal/tasks)
//
//   - TransitionNotifier, SLAReminderSender, SLARunRecorder, FeaturedRotator,
//     AuditEventCleaner: what each backlite queue calls into
//
// # Adding a New Background Job
//
//  1. Define the task and its processor in internal/tasks/
//
//     type ReindexLibraryTask struct{}
//
//     func (t ReindexLibraryTask) Config() backlite.QueueConfig
//     func ReindexLibraryProcessor(r Reindexer) backlite.QueueProcessor[ReindexLibraryTask]
//
//  2. Add the queue to tasks.Queues and a method on scheduler.Runner
//
//  3. Schedule it in scheduler.New or expose it through the tasks controller
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
