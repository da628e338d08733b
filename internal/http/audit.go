package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	auditdb "github.com/stories1001/publisher/internal/database/audit"
	"github.com/stories1001/publisher/internal/entities"
)

type AuditController struct {
	auditService AuditReader
}

func NewAuditController(auditService AuditReader) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit?type=STATUS_CHANGE&entity_type=submission&entity_id=4&user_id=2
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	page, limit := parsePage(c, 25, 100)

	filter := auditdb.EventFilter{
		EventType:  entities.AuditEventType(strings.ToUpper(c.Query("type"))),
		EntityType: c.Query("entity_type"),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid user_id")
			return
		}
		filter.UserID = uint(id)
	}
	if raw := c.Query("entity_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid entity_id")
			return
		}
		filter.EntityID = uint(id)
	}

	events, total, err := ac.auditService.GetEvents(filter)
	if err != nil {
		respondInternalError(c, err, "get audit events")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":      events,
		"total":       total,
		"page":        page,
		"limit":       limit,
		"event_types": getEventTypes(),
	})
}

func getEventTypes() []entities.AuditEventType {
	return []entities.AuditEventType{
		entities.AuditEventStatusChange,
		entities.AuditEventBulkOperation,
		entities.AuditEventSLAViolation,
		entities.AuditEventRoleMigration,
		entities.AuditEventFeatured,
		entities.AuditEventAuth,
		entities.AuditEventSettings,
	}
}
