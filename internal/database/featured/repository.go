// Package featured provides database operations for featured book sets.
package featured

import (
	"errors"

	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/entities"
)

var ErrNoActiveSet = errors.New("no active featured set")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetActive returns the currently active set.
func (r *Repository) GetActive() (*entities.FeaturedSet, error) {
	var set entities.FeaturedSet
	err := r.db.Where("is_active = ?", true).Order("starts_at DESC, id DESC").First(&set).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSet
		}
		return nil, err
	}
	return &set, nil
}

// Replace deactivates every active set and stores the new one atomically.
func (r *Repository) Replace(set *entities.FeaturedSet) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.FeaturedSet{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		set.IsActive = true
		return tx.Create(set).Error
	})
}

// History returns past and current sets, newest first.
func (r *Repository) History(limit int) ([]entities.FeaturedSet, error) {
	if limit <= 0 {
		limit = 10
	}
	var sets []entities.FeaturedSet
	err := r.db.Order("starts_at DESC, id DESC").Limit(limit).Find(&sets).Error
	return sets, err
}
