package entities

import "time"

type NotificationType string

const (
	NotificationStatusChange NotificationType = "STATUS_CHANGE"
	NotificationFeedback     NotificationType = "FEEDBACK"
	NotificationSLAReminder  NotificationType = "SLA_REMINDER"
	NotificationAssignment   NotificationType = "ASSIGNMENT"
	NotificationPublished    NotificationType = "PUBLISHED"
	NotificationRoleChanged  NotificationType = "ROLE_CHANGED"
)

type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"index" json:"user_id"`
	Type      NotificationType `gorm:"size:30;index" json:"type"`
	Title     string           `gorm:"size:255" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	Data      string           `gorm:"type:text" json:"data,omitempty"` // JSON payload
	Read      bool             `gorm:"default:false;index" json:"read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
