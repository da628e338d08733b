package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication, actor taken from X-Debug-User (default)
	AuthModeLocal AuthMode = "local" // Local user database with sessions and API tokens
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Tasks
		Workflow
		Featured
		Audit
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)

		// How long a session trusts its cached role before rereading the user
		SessionRoleRecheck time.Duration
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Workflow struct {
		Mode                  WorkflowMode
		AllowModeOverride     bool
		ReviewDeadlineHours   int
		RevisionDeadlineDays  int
		ReminderIntervalHours int
		IdempotencyWindow     time.Duration
		SLAEnabled            bool
		SLASchedule           string // Cron format: "0 * * * *" = hourly
	}
	Featured struct {
		Size             int
		DurationDays     int
		RotationEnabled  bool
		RotationSchedule string // Cron format: "0 3 * * *" = daily at 03:00
		SelectionMethod  SelectionMethod
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 90)
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("audit_retention_days", 90)

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration
	v.SetDefault("auth_session_role_recheck", "1m")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Workflow defaults
	v.SetDefault("workflow_mode", string(WorkflowModeStandard))
	v.SetDefault("workflow_allow_mode_override", false)
	v.SetDefault("workflow_review_deadline_hours", 48)
	v.SetDefault("workflow_revision_deadline_days", 7)
	v.SetDefault("workflow_reminder_interval_hours", 24)
	v.SetDefault("workflow_idempotency_window", "5s")
	v.SetDefault("workflow_sla_enabled", true)
	v.SetDefault("workflow_sla_schedule", "0 * * * *") // Hourly at :00

	// Featured rotation defaults
	v.SetDefault("featured_size", 3)
	v.SetDefault("featured_duration_days", 30)
	v.SetDefault("featured_rotation_enabled", true)
	v.SetDefault("featured_rotation_schedule", "0 3 * * *") // Daily at 03:00
	v.SetDefault("featured_selection_method", string(SelectionRandom))

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),

			SessionRoleRecheck: v.GetDuration("AUTH_SESSION_ROLE_RECHECK"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Workflow: Workflow{
			Mode:                  WorkflowMode(v.GetString("WORKFLOW_MODE")),
			AllowModeOverride:     v.GetBool("WORKFLOW_ALLOW_MODE_OVERRIDE"),
			ReviewDeadlineHours:   v.GetInt("WORKFLOW_REVIEW_DEADLINE_HOURS"),
			RevisionDeadlineDays:  v.GetInt("WORKFLOW_REVISION_DEADLINE_DAYS"),
			ReminderIntervalHours: v.GetInt("WORKFLOW_REMINDER_INTERVAL_HOURS"),
			IdempotencyWindow:     v.GetDuration("WORKFLOW_IDEMPOTENCY_WINDOW"),
			SLAEnabled:            v.GetBool("WORKFLOW_SLA_ENABLED"),
			SLASchedule:           v.GetString("WORKFLOW_SLA_SCHEDULE"),
		},
		Featured: Featured{
			Size:             v.GetInt("FEATURED_SIZE"),
			DurationDays:     v.GetInt("FEATURED_DURATION_DAYS"),
			RotationEnabled:  v.GetBool("FEATURED_ROTATION_ENABLED"),
			RotationSchedule: v.GetString("FEATURED_ROTATION_SCHEDULE"),
			SelectionMethod:  SelectionMethod(v.GetString("FEATURED_SELECTION_METHOD")),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
	}
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case AuthModeNone, AuthModeLocal:
	default:
		return fmt.Errorf("invalid AUTH_MODE %q: must be none or local", c.Auth.Mode)
	}
	if !c.Workflow.Mode.IsValid() {
		return fmt.Errorf("invalid WORKFLOW_MODE %q: must be SIMPLE or STANDARD", c.Workflow.Mode)
	}
	if !c.Featured.SelectionMethod.IsValid() {
		return fmt.Errorf("invalid FEATURED_SELECTION_METHOD %q", c.Featured.SelectionMethod)
	}
	if c.Featured.Size < 1 {
		return fmt.Errorf("FEATURED_SIZE must be at least 1, got %d", c.Featured.Size)
	}
	if c.Tasks.Enabled && c.Tasks.Workers < 1 {
		return fmt.Errorf("TASK_WORKERS must be at least 1 when tasks are enabled")
	}
	return nil
}
