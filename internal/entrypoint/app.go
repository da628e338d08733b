package entrypoint

import (
	"context"
	"fmt"
	"log"

	"github.com/juju/clock"

	"github.com/stories1001/publisher/internal/audit"
	"github.com/stories1001/publisher/internal/auth"
	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/database"
	auditdb "github.com/stories1001/publisher/internal/database/audit"
	"github.com/stories1001/publisher/internal/database/settings"
	"github.com/stories1001/publisher/internal/scheduler"
	"github.com/stories1001/publisher/internal/services"
	"github.com/stories1001/publisher/internal/settingsstore"
	"github.com/stories1001/publisher/internal/tasks"
	"github.com/stories1001/publisher/internal/workflow"
)

// App holds every long-lived service of the publisher. The HTTP server and
// the CLI commands build it the same way.
type App struct {
	Config *config.Config
	DB     *database.Database

	Settings      *settingsstore.SettingsStore
	Audit         *audit.Service
	Workflow      *workflow.Manager
	Submissions   *services.SubmissionService
	Library       *services.LibraryService
	Featured      *services.FeaturedService
	Notifications *services.NotificationService
	Templates     *services.TemplateService
	Admin         *services.AdminService
	Auth          *auth.Service

	// Tasks is nil when the background queue is disabled.
	Tasks  *tasks.Client
	Runner *scheduler.Runner
}

// NewApp opens the database and wires the services. With useQueue set and
// tasks enabled in the config, notifications and jobs go through the
// background queue.
func NewApp(cfg *config.Config, useQueue bool) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	clk := clock.WallClock
	app := &App{Config: cfg, DB: db}

	app.Settings = settingsstore.New(settings.NewRepository(db.DB), cfg.Workflow, cfg.Featured)
	app.Audit = audit.NewService(auditdb.NewRepository(db.DB))
	app.Workflow = workflow.NewManager(db.DB, app.Settings, app.Audit, clk, cfg.Workflow.IdempotencyWindow)
	app.Submissions = services.NewSubmissionService(db.DB, clk)
	app.Library = services.NewLibraryService(db.DB)
	app.Featured = services.NewFeaturedService(db.DB, app.Settings, app.Audit, clk)
	app.Notifications = services.NewNotificationService(db.DB, clk)
	app.Templates = services.NewTemplateService(db.DB)
	app.Admin = services.NewAdminService(db.DB, app.Workflow, app.Notifications, app.Audit, clk)
	app.Auth = auth.NewService(db.DB, cfg.Auth)

	deps := tasks.Dependencies{
		Notifier:     app.Notifications,
		SLA:          app.Workflow,
		SLARecorder:  app.Settings,
		Featured:     app.Featured,
		AuditCleaner: app.Audit,
	}

	if useQueue && cfg.Tasks.Enabled {
		app.Tasks, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize task queue: %w", err)
		}
		app.Tasks.Register(tasks.Queues(deps)...)
		app.Workflow.SetNotifier(tasks.NewQueueNotifier(app.Tasks))
		app.Runner = scheduler.NewRunner(app.Tasks, deps)
		log.Printf("Task queue enabled with %d workers", cfg.Tasks.Workers)
	} else {
		app.Workflow.SetNotifier(app.Notifications)
		app.Runner = scheduler.NewRunner(nil, deps)
	}

	return app, nil
}

// StartTasks starts the queue workers. It is a no-op without a queue.
func (a *App) StartTasks(ctx context.Context) {
	if a.Tasks != nil {
		go a.Tasks.Start(ctx)
	}
}

// Close stops the queue and closes both databases.
func (a *App) Close(ctx context.Context) {
	if a.Tasks != nil {
		a.Tasks.Stop(ctx)
		if err := a.Tasks.Close(); err != nil {
			log.Printf("Error closing task client: %v", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}
