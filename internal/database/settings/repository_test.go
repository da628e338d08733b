package settings

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stories1001/publisher/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_settings_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Setting{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func TestRepository_SetSetting_Update(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.SetSetting(entities.SettingKeyWorkflowMode, "SIMPLE"))
	require.NoError(t, repo.SetSetting(entities.SettingKeyWorkflowMode, "STANDARD"))

	setting, err := repo.GetSetting(entities.SettingKeyWorkflowMode)
	require.NoError(t, err)
	assert.Equal(t, "STANDARD", setting.Value)
}

func TestRepository_GetSetting_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetSetting("nonexistent")

	assert.Error(t, err)
}

func TestRepository_SetSettings_GetSettings(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.SetSettings(map[string]string{
		entities.SettingKeyWorkflowReviewDeadline:   "24",
		entities.SettingKeyWorkflowRevisionDeadline: "3",
	})
	require.NoError(t, err)

	values, err := repo.GetSettings(
		entities.SettingKeyWorkflowReviewDeadline,
		entities.SettingKeyWorkflowRevisionDeadline,
		entities.SettingKeyWorkflowReminderInterval,
	)
	require.NoError(t, err)
	assert.Equal(t, "24", values[entities.SettingKeyWorkflowReviewDeadline])
	assert.Equal(t, "3", values[entities.SettingKeyWorkflowRevisionDeadline])
	_, ok := values[entities.SettingKeyWorkflowReminderInterval]
	assert.False(t, ok)
}

func TestRepository_DeleteSetting(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.SetSetting("to-delete", "value"))
	require.NoError(t, repo.DeleteSetting("to-delete"))

	_, err := repo.GetSetting("to-delete")
	assert.Error(t, err)

	// Should not error even if key doesn't exist
	assert.NoError(t, repo.DeleteSetting("nonexistent"))
}
