package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stories1001/publisher/internal/entities"
)

// Seal fills the correlation id (if missing), the timestamp (if missing)
// and the checksum of an event. It must be the last change made to an
// event before it is stored.
func Seal(event *entities.AuditEvent) {
	if event.CorrelationID == "" {
		event.CorrelationID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.Checksum = Checksum(event)
}

// Checksum returns the SHA-256 of the event payload as hex.
func Checksum(event *entities.AuditEvent) string {
	entityID := uint(0)
	if event.EntityID != nil {
		entityID = *event.EntityID
	}
	payload := fmt.Sprintf("%d|%s|%s|%s|%s|%d|%s|%s|%s|%s|%d",
		event.UserID,
		event.EventType,
		event.Action,
		event.Description,
		event.EntityType,
		entityID,
		event.Metadata,
		event.CorrelationID,
		event.Status,
		event.ErrorMsg,
		event.CreatedAt.UTC().UnixNano(),
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the stored checksum still matches the event payload.
func Verify(event *entities.AuditEvent) bool {
	return event.Checksum != "" && event.Checksum == Checksum(event)
}
