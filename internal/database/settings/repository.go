// Package settings provides database operations for key/value settings overrides.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	values, err := repo.GetSettings(entities.SettingKeyWorkflowMode, entities.SettingKeyWorkflowReviewDeadline)
package settings

import (
	"errors"

	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting retrieves a setting by key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// GetSettings returns the stored values for the given keys. Missing keys are absent from the map.
func (r *Repository) GetSettings(keys ...string) (map[string]string, error) {
	var rows []entities.Setting
	values := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return values, nil
	}
	if err := r.db.Where("key IN ?", keys).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}

// SetSetting creates or updates a setting.
func (r *Repository) SetSetting(key, value string) error {
	return upsert(r.db, key, value)
}

// SetSettings writes several settings in one transaction.
func (r *Repository) SetSettings(values map[string]string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			if err := upsert(tx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteSetting removes a setting by key.
func (r *Repository) DeleteSetting(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}

func upsert(db *gorm.DB, key, value string) error {
	var setting entities.Setting
	result := db.Where("key = ?", key).First(&setting)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		setting = entities.Setting{
			Key:   key,
			Value: value,
		}
		return db.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	return db.Save(&setting).Error
}
