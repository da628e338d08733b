package settingsstore

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/database"
	"github.com/stories1001/publisher/internal/database/settings"
	"github.com/stories1001/publisher/internal/entities"
)

func setupTestStore(t *testing.T) (*SettingsStore, *settings.Repository) {
	t.Helper()
	dbPath := "./test_settings_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	repo := settings.NewRepository(db.DB)
	store := New(repo, config.Workflow{
		Mode:                  config.WorkflowModeStandard,
		ReviewDeadlineHours:   48,
		RevisionDeadlineDays:  7,
		ReminderIntervalHours: 24,
	}, config.Featured{
		Size:            3,
		DurationDays:    30,
		SelectionMethod: config.SelectionRandom,
	})
	return store, repo
}

func intPtr(v int) *int { return &v }

func TestGetWorkflowSettings_Defaults(t *testing.T) {
	store, _ := setupTestStore(t)

	ws := store.GetWorkflowSettings()

	assert.Equal(t, config.WorkflowModeStandard, ws.Mode)
	assert.Equal(t, 48*time.Hour, ws.ReviewDeadline())
	assert.Equal(t, 7*24*time.Hour, ws.RevisionDeadline())
	assert.Equal(t, 24*time.Hour, ws.ReminderInterval())
}

func TestGetWorkflowSettings_DatabaseOverrides(t *testing.T) {
	store, repo := setupTestStore(t)

	require.NoError(t, repo.SetSetting(entities.SettingKeyWorkflowMode, "SIMPLE"))
	require.NoError(t, repo.SetSetting(entities.SettingKeyWorkflowReviewDeadline, "12"))

	ws := store.GetWorkflowSettings()
	assert.Equal(t, config.WorkflowModeSimple, ws.Mode)
	assert.Equal(t, 12, ws.ReviewDeadlineHours)

	info := store.GetWorkflowSettingsInfo()
	assert.Equal(t, SourceDatabase, info.ModeSource)
	assert.Equal(t, SourceDatabase, info.ReviewDeadlineSource)
}

func TestGetWorkflowSettings_IgnoresInvalidStoredMode(t *testing.T) {
	store, repo := setupTestStore(t)

	require.NoError(t, repo.SetSetting(entities.SettingKeyWorkflowMode, "TURBO"))

	assert.Equal(t, config.WorkflowModeStandard, store.GetWorkflowSettings().Mode)
}

func TestGetWorkflowSettingsInfo_EnvironmentSource(t *testing.T) {
	store, _ := setupTestStore(t)
	t.Setenv("WORKFLOW_REVISION_DEADLINE_DAYS", "3")

	info := store.GetWorkflowSettingsInfo()

	assert.Equal(t, SourceEnvironment, info.RevisionDeadlineSource)
	assert.Equal(t, SourceDefault, info.ModeSource)
}

func TestUpdateWorkflowSettings(t *testing.T) {
	store, _ := setupTestStore(t)

	mode := config.WorkflowModeSimple
	ws, err := store.UpdateWorkflowSettings(WorkflowSettingsUpdate{
		Mode:                &mode,
		ReviewDeadlineHours: intPtr(72),
	})

	require.NoError(t, err)
	assert.Equal(t, config.WorkflowModeSimple, ws.Mode)
	assert.Equal(t, 72, ws.ReviewDeadlineHours)
	assert.Equal(t, 7, ws.RevisionDeadlineDays)
}

func TestUpdateWorkflowSettings_Validation(t *testing.T) {
	tests := []struct {
		name   string
		update WorkflowSettingsUpdate
		field  string
	}{
		{"review deadline too low", WorkflowSettingsUpdate{ReviewDeadlineHours: intPtr(0)}, "review_deadline_hours"},
		{"review deadline too high", WorkflowSettingsUpdate{ReviewDeadlineHours: intPtr(169)}, "review_deadline_hours"},
		{"revision deadline too high", WorkflowSettingsUpdate{RevisionDeadlineDays: intPtr(31)}, "revision_deadline_days"},
		{"reminder too high", WorkflowSettingsUpdate{ReminderIntervalHours: intPtr(73)}, "reminder_interval_hours"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := setupTestStore(t)

			_, err := store.UpdateWorkflowSettings(tt.update)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}
}

func TestClearWorkflowSettings(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.UpdateWorkflowSettings(WorkflowSettingsUpdate{ReviewDeadlineHours: intPtr(10)})
	require.NoError(t, err)

	require.NoError(t, store.ClearWorkflowSettings())

	assert.Equal(t, 48, store.GetWorkflowSettings().ReviewDeadlineHours)
}

func TestSLALastRunAt(t *testing.T) {
	store, _ := setupTestStore(t)

	assert.Nil(t, store.GetSLALastRunAt())

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetSLALastRunAt(now))

	got := store.GetSLALastRunAt()
	require.NotNil(t, got)
	assert.True(t, now.Equal(*got))
}

func TestFeaturedSettings(t *testing.T) {
	store, _ := setupTestStore(t)

	fs := store.GetFeaturedSettings()
	assert.Equal(t, 3, fs.Size)
	assert.Equal(t, 30, fs.DurationDays)
	assert.Equal(t, config.SelectionRandom, fs.SelectionMethod)

	require.NoError(t, store.SetFeaturedSelectionMethod(config.SelectionMostViewed))
	require.NoError(t, store.SetFeaturedDurationDays(14))
	assert.Error(t, store.SetFeaturedSelectionMethod("ALPHABETICAL"))
	assert.Error(t, store.SetFeaturedDurationDays(0))

	fs = store.GetFeaturedSettings()
	assert.Equal(t, config.SelectionMostViewed, fs.SelectionMethod)
	assert.Equal(t, 14, fs.DurationDays)
}
