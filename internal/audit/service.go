package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/stories1001/publisher/internal/database/audit"
	"github.com/stories1001/publisher/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	Seal(event)
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	Seal(event)
	go func() {
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// LogBulkOperation records the outcome of a bulk admin or workflow operation.
func (s *Service) LogBulkOperation(userID uint, action, description string, summary any, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventBulkOperation,
		Action:      action,
		Description: truncate(description, 500),
		Metadata:    marshalMetadata(summary),
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogSLAViolation records an overdue submission found by the SLA sweep.
func (s *Service) LogSLAViolation(submissionID uint, status entities.PublishingStatus, overdueBy time.Duration) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventSLAViolation,
		Action:      "sla_overdue",
		Description: "Submission overdue in " + string(status),
		EntityType:  "submission",
		EntityID:    &submissionID,
		Metadata: marshalMetadata(map[string]any{
			"status":        status,
			"overdue_hours": int(overdueBy.Hours()),
		}),
		Status: entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogRoleMigration records a role change attempt.
func (s *Service) LogRoleMigration(actorID uint, m *entities.RoleMigration, err error) {
	userID := m.UserID
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventRoleMigration,
		Action:      "migrate_role",
		Description: string(m.FromRole) + " -> " + string(m.ToRole),
		EntityType:  "user",
		EntityID:    &userID,
		Metadata: marshalMetadata(map[string]any{
			"migration_id": m.ID,
			"status":       m.Status,
			"reason":       m.Reason,
		}),
		Status: entities.AuditStatusSuccess,
	}
	if m.Status == entities.RoleMigrationRolledBack {
		event.Action = "rollback_role"
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogFeatured records a featured set change.
func (s *Service) LogFeatured(userID uint, set *entities.FeaturedSet) {
	setID := set.ID
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventFeatured,
		Action:      "featured_" + string(set.RotationType),
		Description: "Featured set replaced",
		EntityType:  "featured_set",
		EntityID:    &setID,
		Metadata:    marshalMetadata(map[string]any{"book_ids": set.BookIDs, "ends_at": set.EndsAt}),
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// LogLoginLockout records that repeated failures locked username out of login.
func (s *Service) LogLoginLockout(username, ipAddr string, attempts int, until time.Time) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventAuth,
		Action:      "login_locked_out",
		Description: fmt.Sprintf("Login for %q locked after %d failed attempts", truncate(username, 100), attempts),
		EntityType:  "user",
		IPAddress:   ipAddr,
		Metadata: marshalMetadata(map[string]any{
			"username":     username,
			"attempts":     attempts,
			"locked_until": until.UTC().Format(time.RFC3339),
		}),
		Status: entities.AuditStatusFailed,
	}

	s.LogAsync(event)
}

// LogSettings records a settings change event.
func (s *Service) LogSettings(userID uint, action, description string) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventSettings,
		Action:      action,
		Description: description,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(filter audit.EventFilter) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(filter)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func marshalMetadata(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
