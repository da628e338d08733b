package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stories1001/publisher/internal/entities"
	"github.com/stories1001/publisher/internal/services"
)

type AdminController struct {
	admin AdminStore
}

func NewAdminController(admin AdminStore) *AdminController {
	return &AdminController{admin: admin}
}

type bulkLibraryRequest struct {
	Action  services.BulkAction  `json:"action"`
	BookIDs []uint               `json:"book_ids"`
	Payload services.BulkPayload `json:"payload"`
}

type migrateRoleRequest struct {
	UserID uint              `json:"user_id"`
	ToRole entities.UserRole `json:"to_role"`
	Reason string            `json:"reason"`
}

// BulkLibrary applies one action to many library books
// POST /api/admin/library/bulk
func (ac *AdminController) BulkLibrary(c *gin.Context) {
	var req bulkLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	req.Action = services.BulkAction(strings.ToLower(string(req.Action)))

	result, err := ac.admin.BulkLibraryAction(actorFrom(c), req.Action, req.BookIDs, req.Payload)
	if err != nil {
		respondServiceError(c, err, "bulk library action")
		return
	}
	c.JSON(http.StatusOK, result)
}

// MigrateRole changes a user's role
// POST /api/admin/roles/migrations
func (ac *AdminController) MigrateRole(c *gin.Context) {
	var req migrateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 || req.ToRole == "" {
		respondBadRequest(c, "user_id and to_role are required")
		return
	}
	toRole := entities.UserRole(strings.ToUpper(string(req.ToRole)))

	migration, err := ac.admin.MigrateRole(actorFrom(c), req.UserID, toRole, req.Reason)
	if err != nil {
		respondServiceError(c, err, "migrate role")
		return
	}
	respondCreated(c, migration)
}

// RollbackRole restores the role a migration replaced
// POST /api/admin/roles/migrations/:id/rollback
func (ac *AdminController) RollbackRole(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	migration, err := ac.admin.RollbackRole(actorFrom(c), id)
	if err != nil {
		respondServiceError(c, err, "rollback role")
		return
	}
	c.JSON(http.StatusOK, migration)
}

// ListMigrations returns recent role migrations, optionally for one user
// GET /api/admin/roles/migrations?user_id=3&limit=50
func (ac *AdminController) ListMigrations(c *gin.Context) {
	var userID uint
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid user_id")
			return
		}
		userID = uint(id)
	}

	list, err := ac.admin.ListMigrations(userID, queryLimit(c, 50, 200))
	if err != nil {
		respondInternalError(c, err, "list role migrations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"migrations": list})
}

// ListUsers returns users, optionally filtered by role
// GET /api/admin/users?role=STORY_MANAGER
func (ac *AdminController) ListUsers(c *gin.Context) {
	role := entities.UserRole(strings.ToUpper(c.Query("role")))
	list, err := ac.admin.ListUsers(role)
	if err != nil {
		respondServiceError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

// Stats returns pipeline counters
// GET /api/admin/stats
func (ac *AdminController) Stats(c *gin.Context) {
	stats, err := ac.admin.Stats(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "admin stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}
