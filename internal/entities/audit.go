package entities

import "time"

type AuditEventType string

const (
	AuditEventStatusChange  AuditEventType = "STATUS_CHANGE"
	AuditEventBulkOperation AuditEventType = "BULK_OPERATION"
	AuditEventSLAViolation  AuditEventType = "SLA_VIOLATION"
	AuditEventRoleMigration AuditEventType = "ROLE_MIGRATION"
	AuditEventFeatured      AuditEventType = "FEATURED"
	AuditEventAuth          AuditEventType = "AUTH"
	AuditEventSettings      AuditEventType = "SETTINGS"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"index" json:"user_id"`
	EventType     AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action        string         `gorm:"size:100" json:"action"`      // e.g., "SUBMIT", "bulk_publish"
	Description   string         `gorm:"size:500" json:"description"` // Human-readable summary
	EntityType    string         `gorm:"size:50" json:"entity_type"`  // "submission", "book", "user"
	EntityID      *uint          `gorm:"index" json:"entity_id,omitempty"`
	Metadata      string         `gorm:"type:text" json:"metadata,omitempty"` // JSON for extra data
	CorrelationID string         `gorm:"size:36;index" json:"correlation_id,omitempty"`
	Checksum      string         `gorm:"size:64" json:"checksum"` // SHA-256 over the event payload
	IPAddress     string         `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent     string         `gorm:"size:500" json:"user_agent,omitempty"`
	Status        AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg      string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
