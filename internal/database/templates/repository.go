// Package templates provides database operations for rejection templates.
package templates

import (
	"errors"

	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/entities"
)

var ErrTemplateNotFound = errors.New("template not found")

// Filter narrows a template listing.
type Filter struct {
	Category   entities.TemplateCategory
	ActiveOnly bool
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(t *entities.RejectionTemplate) error {
	return r.db.Create(t).Error
}

func (r *Repository) Save(t *entities.RejectionTemplate) error {
	return r.db.Save(t).Error
}

func (r *Repository) GetByID(id uint) (*entities.RejectionTemplate, error) {
	var t entities.RejectionTemplate
	if err := r.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List returns templates ordered by usage, most used first.
func (r *Repository) List(filter Filter) ([]entities.RejectionTemplate, error) {
	var ts []entities.RejectionTemplate
	query := r.db.Order("usage_count DESC, name ASC")
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Find(&ts).Error
	return ts, err
}

func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.RejectionTemplate{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// IncrementUsage bumps the usage counter of a template.
func (r *Repository) IncrementUsage(id uint) error {
	return r.db.Model(&entities.RejectionTemplate{}).Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1)).Error
}
