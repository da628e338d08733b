package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stories1001/publisher/internal/auth"
	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/settingsstore"
)

// SettingsController exposes the database-stored workflow and featured settings.
type SettingsController struct {
	store SettingsManager
	audit AuditReader
}

func NewSettingsController(store SettingsManager, audit AuditReader) *SettingsController {
	return &SettingsController{store: store, audit: audit}
}

type featuredSettingsRequest struct {
	SelectionMethod *config.SelectionMethod `json:"selection_method"`
	DurationDays    *int                    `json:"duration_days"`
}

func (sc *SettingsController) logChange(c *gin.Context, action, description string) {
	if sc.audit != nil {
		sc.audit.LogSettings(auth.GetUserID(c), action, description)
	}
}

// GetWorkflow returns the effective workflow settings and where each value comes from
// GET /api/settings/workflow
func (sc *SettingsController) GetWorkflow(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings":        sc.store.GetWorkflowSettingsInfo(),
		"sla_last_run_at": sc.store.GetSLALastRunAt(),
	})
}

// UpdateWorkflow stores workflow settings overrides
// PUT /api/settings/workflow
func (sc *SettingsController) UpdateWorkflow(c *gin.Context) {
	var update settingsstore.WorkflowSettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if update.Mode != nil {
		mode := config.WorkflowMode(strings.ToUpper(string(*update.Mode)))
		update.Mode = &mode
	}

	ws, err := sc.store.UpdateWorkflowSettings(update)
	if err != nil {
		respondServiceError(c, err, "update workflow settings")
		return
	}
	sc.logChange(c, "workflow_settings_updated", fmt.Sprintf("Workflow settings updated: mode=%s review=%dh revision=%dd reminder=%dh",
		ws.Mode, ws.ReviewDeadlineHours, ws.RevisionDeadlineDays, ws.ReminderIntervalHours))

	c.JSON(http.StatusOK, gin.H{"settings": sc.store.GetWorkflowSettingsInfo()})
}

// ClearWorkflow drops every database override
// DELETE /api/settings/workflow
func (sc *SettingsController) ClearWorkflow(c *gin.Context) {
	if err := sc.store.ClearWorkflowSettings(); err != nil {
		respondInternalError(c, err, "clear workflow settings")
		return
	}
	sc.logChange(c, "workflow_settings_cleared", "Workflow settings reset to environment defaults")
	c.JSON(http.StatusOK, gin.H{"settings": sc.store.GetWorkflowSettingsInfo()})
}

// GetFeatured returns the featured rotation settings
// GET /api/settings/featured
func (sc *SettingsController) GetFeatured(c *gin.Context) {
	c.JSON(http.StatusOK, sc.store.GetFeaturedSettings())
}

// UpdateFeatured changes the selection method or duration of automatic rotations
// PUT /api/settings/featured
func (sc *SettingsController) UpdateFeatured(c *gin.Context) {
	var req featuredSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.SelectionMethod == nil && req.DurationDays == nil {
		respondBadRequest(c, "nothing to update")
		return
	}

	if req.SelectionMethod != nil {
		method := config.SelectionMethod(strings.ToUpper(string(*req.SelectionMethod)))
		if err := sc.store.SetFeaturedSelectionMethod(method); err != nil {
			respondServiceError(c, err, "update featured selection")
			return
		}
	}
	if req.DurationDays != nil {
		if err := sc.store.SetFeaturedDurationDays(*req.DurationDays); err != nil {
			respondServiceError(c, err, "update featured duration")
			return
		}
	}

	fs := sc.store.GetFeaturedSettings()
	sc.logChange(c, "featured_settings_updated", fmt.Sprintf("Featured settings updated: method=%s duration=%dd",
		fs.SelectionMethod, fs.DurationDays))
	c.JSON(http.StatusOK, fs)
}
