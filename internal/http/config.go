package http

import (
	"database/sql"

	"github.com/stories1001/publisher/internal/auth"
	"github.com/stories1001/publisher/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database

	Submissions   SubmissionStore
	Workflow      WorkflowEngine
	Library       LibraryReader
	Featured      FeaturedStore
	Notifications NotificationStore
	Templates     TemplateStore
	Admin         AdminStore
	Settings      SettingsManager
	Audit         AuditReader

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	AuthController *auth.AuthController
	CSRFSecret     []byte
	SecureCookies  bool

	// Background work (optional)
	TaskQueue TaskQueue
	TaskDB    *sql.DB
	Jobs      JobStatusProvider
	JobRunner JobTrigger

	// Application info
	Version string
}
