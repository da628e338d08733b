package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Workflow settings
	SettingKeyWorkflowMode              = "workflow_mode"
	SettingKeyWorkflowReviewDeadline    = "workflow_review_deadline_hours"
	SettingKeyWorkflowRevisionDeadline  = "workflow_revision_deadline_days"
	SettingKeyWorkflowReminderInterval  = "workflow_reminder_interval_hours"
	SettingKeyWorkflowAllowModeOverride = "workflow_allow_mode_override"
	SettingKeyWorkflowSLALastRunAt      = "workflow_sla_last_run_at"

	// Featured rotation settings
	SettingKeyFeaturedSelectionMethod = "featured_selection_method"
	SettingKeyFeaturedDurationDays    = "featured_duration_days"
	SettingKeyFeaturedLastRotatedAt   = "featured_last_rotated_at"
)
