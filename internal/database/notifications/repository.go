// Package notifications provides database operations for in-app notifications.
package notifications

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/entities"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a notification.
func (r *Repository) Create(n *entities.Notification) error {
	return r.db.Create(n).Error
}

// CreateMany stores several notifications in one batch.
func (r *Repository) CreateMany(ns []entities.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.db.Create(&ns).Error
}

// ListForUser returns a page of a user's notifications, newest first.
func (r *Repository) ListForUser(userID uint, unreadOnly bool, limit, offset int) ([]entities.Notification, int64, error) {
	query := r.db.Model(&entities.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var ns []entities.Notification
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&ns).Error
	return ns, total, err
}

// MarkRead marks one of the user's notifications as read.
func (r *Repository) MarkRead(userID, id uint, at time.Time) error {
	result := r.db.Model(&entities.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"read": true, "read_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read.
func (r *Repository) MarkAllRead(userID uint, at time.Time) (int64, error) {
	result := r.db.Model(&entities.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Updates(map[string]any{"read": true, "read_at": at})
	return result.RowsAffected, result.Error
}

// UnreadCount returns the number of unread notifications of a user.
func (r *Repository) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// LastOfType returns the time of the most recent notification of a type for a user
// referencing the given data payload, or nil when none exists.
func (r *Repository) LastOfType(userID uint, typ entities.NotificationType, data string) (*time.Time, error) {
	var n entities.Notification
	err := r.db.Where("user_id = ? AND type = ? AND data = ?", userID, typ, data).
		Order("created_at DESC").First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &n.CreatedAt, nil
}
