package settingsstore

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/database/settings"
	"github.com/stories1001/publisher/internal/entities"
)

const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
	SourceDefault     = "default"
)

// Priority: database > environment > default
type SettingsStore struct {
	repo     *settings.Repository
	workflow config.Workflow
	featured config.Featured
}

// New creates a store on top of the settings repository. The config values
// already carry environment overrides and defaults.
func New(repo *settings.Repository, workflow config.Workflow, featured config.Featured) *SettingsStore {
	return &SettingsStore{repo: repo, workflow: workflow, featured: featured}
}

// FieldError describes one invalid setting value.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when an update contains invalid values.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// lookup returns the database value of key, if any.
func (s *SettingsStore) lookup(key string) (string, bool) {
	setting, err := s.repo.GetSetting(key)
	if err != nil || setting.Value == "" {
		return "", false
	}
	return setting.Value, true
}

// source reports where the effective value of key comes from.
func (s *SettingsStore) source(key, envVar string) string {
	if _, ok := s.lookup(key); ok {
		return SourceDatabase
	}
	if os.Getenv(envVar) != "" {
		return SourceEnvironment
	}
	return SourceDefault
}

func (s *SettingsStore) intValue(key string, fallback int) int {
	if v, ok := s.lookup(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func (s *SettingsStore) boolValue(key string, fallback bool) bool {
	if v, ok := s.lookup(key); ok {
		return v == "true" || v == "1"
	}
	return fallback
}

func (s *SettingsStore) clear(keys ...string) error {
	for _, key := range keys {
		err := s.repo.DeleteSetting(key)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}
	return nil
}

// SetValue stores a raw value. Used for bookkeeping keys like last-run timestamps.
func (s *SettingsStore) SetValue(key, value string) error {
	return s.repo.SetSetting(key, value)
}

// Value returns a raw stored value.
func (s *SettingsStore) Value(key string) string {
	v, _ := s.lookup(key)
	return v
}

// workflowKeys are the overrides removed by ClearWorkflowSettings.
var workflowKeys = []string{
	entities.SettingKeyWorkflowMode,
	entities.SettingKeyWorkflowReviewDeadline,
	entities.SettingKeyWorkflowRevisionDeadline,
	entities.SettingKeyWorkflowReminderInterval,
	entities.SettingKeyWorkflowAllowModeOverride,
}
