package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stories1001/publisher/internal/entities"
)

func TestSeal(t *testing.T) {
	event := &entities.AuditEvent{
		UserID:    3,
		EventType: entities.AuditEventStatusChange,
		Action:    "APPROVE",
		Status:    entities.AuditStatusSuccess,
	}

	Seal(event)

	assert.NotEmpty(t, event.CorrelationID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.Len(t, event.Checksum, 64)
	assert.True(t, Verify(event))
}

func TestSeal_KeepsCorrelationID(t *testing.T) {
	event := &entities.AuditEvent{CorrelationID: "fixed", EventType: entities.AuditEventAuth}

	Seal(event)

	assert.Equal(t, "fixed", event.CorrelationID)
}

func TestVerify_DetectsTampering(t *testing.T) {
	event := &entities.AuditEvent{
		UserID:      1,
		EventType:   entities.AuditEventRoleMigration,
		Action:      "migrate_role",
		Description: "WRITER -> ADMIN",
		Status:      entities.AuditStatusSuccess,
	}
	Seal(event)

	event.Description = "WRITER -> STORY_MANAGER"

	assert.False(t, Verify(event))
}

func TestVerify_EmptyChecksum(t *testing.T) {
	assert.False(t, Verify(&entities.AuditEvent{}))
}
