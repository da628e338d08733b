package http

import (
	"github.com/gin-gonic/gin"

	"github.com/stories1001/publisher/internal/auth"
	"github.com/stories1001/publisher/internal/entities"
)

// Role groups used by route guards. Services apply finer checks.
var managerRoles = []entities.UserRole{entities.UserRoleAdmin, entities.UserRoleContentAdmin}

var reviewerRoles = []entities.UserRole{
	entities.UserRoleStoryManager,
	entities.UserRoleBookManager,
	entities.UserRoleContentAdmin,
	entities.UserRoleCoordinator,
	entities.UserRoleAdmin,
}

// NewRouter creates and configures the HTTP router with all endpoints.
// Controllers whose dependency is nil are not registered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.Handler())
	}

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, auth.AnonymousUserID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version)
	if cfg.TaskDB != nil {
		health.WithTaskQueue(cfg.TaskDB)
	}
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router)
	}

	api := router.Group("/api")
	authed := api.Group("", auth.RequireAuth())
	admin := authed.Group("/admin", auth.RequireRole(managerRoles...))

	// Public library
	if cfg.Library != nil {
		library := NewLibraryController(cfg.Library)
		api.GET("/library", library.List)
		api.GET("/library/:id", library.Get)
		api.GET("/library/:id/translations", library.Translations)
	}

	// Featured books
	if cfg.Featured != nil {
		featured := NewFeaturedController(cfg.Featured, cfg.JobRunner)
		api.GET("/featured", featured.Current)
		authed.GET("/featured/history", featured.History)
		admin.POST("/featured", featured.SetManual)
		admin.POST("/featured/rotate", featured.Rotate)
	}

	// Submissions and workflow
	if cfg.Submissions != nil {
		submissions := NewSubmissionsController(cfg.Submissions, cfg.Workflow)
		authed.GET("/submissions", submissions.ListOwn)
		authed.POST("/submissions", submissions.Create)
		authed.GET("/submissions/queue", auth.RequireRole(reviewerRoles...), submissions.Queue)
		authed.GET("/submissions/:id", submissions.Get)
		authed.PUT("/submissions/:id", submissions.Update)
		authed.DELETE("/submissions/:id", submissions.Delete)
		authed.GET("/submissions/:id/revisions", submissions.Revisions)
		authed.GET("/submissions/:id/revisions/diff", submissions.Diff)
	}

	if cfg.Workflow != nil && cfg.Submissions != nil {
		wf := NewWorkflowController(cfg.Workflow, cfg.Submissions)
		authed.POST("/submissions/:id/transitions", wf.Transition)
		authed.POST("/submissions/:id/transitions/preview", wf.Preview)
		authed.GET("/submissions/:id/history", wf.History)
		authed.GET("/submissions/:id/actions", wf.Actions)
		authed.GET("/workflow/steps", wf.Steps)
		authed.POST("/workflow/bulk", auth.RequireRole(reviewerRoles...), wf.Bulk)
		admin.GET("/sla/overdue", wf.Overdue)
		admin.POST("/sla/run", wf.SendReminders)
	}

	// Notifications
	if cfg.Notifications != nil {
		notifications := NewNotificationsController(cfg.Notifications)
		authed.GET("/notifications", notifications.List)
		authed.GET("/notifications/unread-count", notifications.UnreadCount)
		authed.POST("/notifications/read-all", notifications.MarkAllRead)
		authed.POST("/notifications/:id/read", notifications.MarkRead)
	}

	// Rejection templates
	if cfg.Templates != nil {
		templates := NewTemplatesController(cfg.Templates)
		authed.GET("/templates", auth.RequireRole(reviewerRoles...), templates.List)
		authed.GET("/templates/:id", auth.RequireRole(reviewerRoles...), templates.Get)
		authed.POST("/templates", auth.RequireRole(managerRoles...), templates.Create)
		authed.PUT("/templates/:id", auth.RequireRole(managerRoles...), templates.Update)
		authed.DELETE("/templates/:id", auth.RequireRole(managerRoles...), templates.Delete)
	}

	// Administration
	if cfg.Admin != nil {
		adminController := NewAdminController(cfg.Admin)
		admin.POST("/library/bulk", adminController.BulkLibrary)
		admin.GET("/roles/migrations", adminController.ListMigrations)
		admin.POST("/roles/migrations", adminController.MigrateRole)
		admin.POST("/roles/migrations/:id/rollback", adminController.RollbackRole)
		admin.GET("/users", adminController.ListUsers)
		admin.GET("/stats", adminController.Stats)
	}

	if cfg.Audit != nil {
		auditController := NewAuditController(cfg.Audit)
		admin.GET("/audit", auditController.GetAuditEvents)
	}

	if cfg.Settings != nil {
		settingsController := NewSettingsController(cfg.Settings, cfg.Audit)
		settings := authed.Group("/settings", auth.RequireRole(managerRoles...))
		settings.GET("/workflow", settingsController.GetWorkflow)
		settings.PUT("/workflow", settingsController.UpdateWorkflow)
		settings.DELETE("/workflow", settingsController.ClearWorkflow)
		settings.GET("/featured", settingsController.GetFeatured)
		settings.PUT("/featured", settingsController.UpdateFeatured)
	}

	// Background jobs
	if cfg.JobRunner != nil {
		tasksController := NewTasksController(cfg.TaskQueue, cfg.Jobs, cfg.JobRunner)
		admin.GET("/tasks/types", tasksController.ListTaskTypes)
		admin.GET("/tasks/:id", tasksController.GetTaskStatus)
		admin.POST("/tasks/:type/run", tasksController.RunTask)
		admin.GET("/jobs", tasksController.ListJobs)
	}

	return router
}
