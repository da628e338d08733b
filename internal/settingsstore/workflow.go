package settingsstore

import (
	"strconv"
	"time"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entities"
)

// WorkflowSettings is the effective workflow configuration.
type WorkflowSettings struct {
	Mode                  config.WorkflowMode `json:"mode"`
	AllowModeOverride     bool                `json:"allow_mode_override"`
	ReviewDeadlineHours   int                 `json:"review_deadline_hours"`
	RevisionDeadlineDays  int                 `json:"revision_deadline_days"`
	ReminderIntervalHours int                 `json:"reminder_interval_hours"`
}

// ReviewDeadline is how long a submission may wait for a reviewer.
func (w WorkflowSettings) ReviewDeadline() time.Duration {
	return time.Duration(w.ReviewDeadlineHours) * time.Hour
}

// RevisionDeadline is how long an author has to resubmit.
func (w WorkflowSettings) RevisionDeadline() time.Duration {
	return time.Duration(w.RevisionDeadlineDays) * 24 * time.Hour
}

// ReminderInterval is the minimum gap between two reminders for the same submission.
func (w WorkflowSettings) ReminderInterval() time.Duration {
	return time.Duration(w.ReminderIntervalHours) * time.Hour
}

// WorkflowSettingsInfo includes source information for each field
type WorkflowSettingsInfo struct {
	WorkflowSettings
	ModeSource             string `json:"mode_source"` // "database", "environment", "default"
	ReviewDeadlineSource   string `json:"review_deadline_source"`
	RevisionDeadlineSource string `json:"revision_deadline_source"`
	ReminderIntervalSource string `json:"reminder_interval_source"`
}

// WorkflowSettingsUpdate carries the fields to change. Nil fields are left untouched.
type WorkflowSettingsUpdate struct {
	Mode                  *config.WorkflowMode `json:"mode"`
	AllowModeOverride     *bool                `json:"allow_mode_override"`
	ReviewDeadlineHours   *int                 `json:"review_deadline_hours"`
	RevisionDeadlineDays  *int                 `json:"revision_deadline_days"`
	ReminderIntervalHours *int                 `json:"reminder_interval_hours"`
}

// Validate checks every provided field against its allowed range.
func (u WorkflowSettingsUpdate) Validate() error {
	verr := &ValidationError{}
	if u.Mode != nil && !u.Mode.IsValid() {
		verr.add("mode", "must be SIMPLE or STANDARD")
	}
	if u.ReviewDeadlineHours != nil && (*u.ReviewDeadlineHours < 1 || *u.ReviewDeadlineHours > 168) {
		verr.add("review_deadline_hours", "must be between 1 and 168")
	}
	if u.RevisionDeadlineDays != nil && (*u.RevisionDeadlineDays < 1 || *u.RevisionDeadlineDays > 30) {
		verr.add("revision_deadline_days", "must be between 1 and 30")
	}
	if u.ReminderIntervalHours != nil && (*u.ReminderIntervalHours < 1 || *u.ReminderIntervalHours > 72) {
		verr.add("reminder_interval_hours", "must be between 1 and 72")
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// GetWorkflowSettings returns the effective workflow settings (database > env > default).
func (s *SettingsStore) GetWorkflowSettings() WorkflowSettings {
	mode := s.workflow.Mode
	if v, ok := s.lookup(entities.SettingKeyWorkflowMode); ok && config.WorkflowMode(v).IsValid() {
		mode = config.WorkflowMode(v)
	}
	if !mode.IsValid() {
		mode = config.WorkflowModeStandard
	}

	return WorkflowSettings{
		Mode:                  mode,
		AllowModeOverride:     s.boolValue(entities.SettingKeyWorkflowAllowModeOverride, s.workflow.AllowModeOverride),
		ReviewDeadlineHours:   s.intValue(entities.SettingKeyWorkflowReviewDeadline, s.workflow.ReviewDeadlineHours),
		RevisionDeadlineDays:  s.intValue(entities.SettingKeyWorkflowRevisionDeadline, s.workflow.RevisionDeadlineDays),
		ReminderIntervalHours: s.intValue(entities.SettingKeyWorkflowReminderInterval, s.workflow.ReminderIntervalHours),
	}
}

// GetWorkflowSettingsInfo returns the settings with source information
func (s *SettingsStore) GetWorkflowSettingsInfo() WorkflowSettingsInfo {
	return WorkflowSettingsInfo{
		WorkflowSettings:       s.GetWorkflowSettings(),
		ModeSource:             s.source(entities.SettingKeyWorkflowMode, "WORKFLOW_MODE"),
		ReviewDeadlineSource:   s.source(entities.SettingKeyWorkflowReviewDeadline, "WORKFLOW_REVIEW_DEADLINE_HOURS"),
		RevisionDeadlineSource: s.source(entities.SettingKeyWorkflowRevisionDeadline, "WORKFLOW_REVISION_DEADLINE_DAYS"),
		ReminderIntervalSource: s.source(entities.SettingKeyWorkflowReminderInterval, "WORKFLOW_REMINDER_INTERVAL_HOURS"),
	}
}

// UpdateWorkflowSettings validates and stores the provided fields as database overrides.
func (s *SettingsStore) UpdateWorkflowSettings(u WorkflowSettingsUpdate) (WorkflowSettings, error) {
	if err := u.Validate(); err != nil {
		return WorkflowSettings{}, err
	}

	values := map[string]string{}
	if u.Mode != nil {
		values[entities.SettingKeyWorkflowMode] = string(*u.Mode)
	}
	if u.AllowModeOverride != nil {
		values[entities.SettingKeyWorkflowAllowModeOverride] = strconv.FormatBool(*u.AllowModeOverride)
	}
	if u.ReviewDeadlineHours != nil {
		values[entities.SettingKeyWorkflowReviewDeadline] = strconv.Itoa(*u.ReviewDeadlineHours)
	}
	if u.RevisionDeadlineDays != nil {
		values[entities.SettingKeyWorkflowRevisionDeadline] = strconv.Itoa(*u.RevisionDeadlineDays)
	}
	if u.ReminderIntervalHours != nil {
		values[entities.SettingKeyWorkflowReminderInterval] = strconv.Itoa(*u.ReminderIntervalHours)
	}

	if err := s.repo.SetSettings(values); err != nil {
		return WorkflowSettings{}, err
	}
	return s.GetWorkflowSettings(), nil
}

// ClearWorkflowSettings removes all database overrides, reverting to env/default
func (s *SettingsStore) ClearWorkflowSettings() error {
	return s.clear(workflowKeys...)
}

// GetSLALastRunAt returns when the SLA sweep last completed.
func (s *SettingsStore) GetSLALastRunAt() *time.Time {
	return s.timeValue(entities.SettingKeyWorkflowSLALastRunAt)
}

// SetSLALastRunAt records when the SLA sweep last completed.
func (s *SettingsStore) SetSLALastRunAt(at time.Time) error {
	return s.repo.SetSetting(entities.SettingKeyWorkflowSLALastRunAt, at.UTC().Format(time.RFC3339))
}

func (s *SettingsStore) timeValue(key string) *time.Time {
	v, ok := s.lookup(key)
	if !ok {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &ts
}
