package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stories1001/publisher/internal/entities"
	"github.com/stories1001/publisher/internal/services"
)

// TemplatesController manages rejection templates.
type TemplatesController struct {
	store TemplateStore
}

func NewTemplatesController(store TemplateStore) *TemplatesController {
	return &TemplatesController{store: store}
}

// List returns the templates visible to the caller
// GET /api/templates?category=CONTENT&active=true
func (tc *TemplatesController) List(c *gin.Context) {
	category := entities.TemplateCategory(strings.ToUpper(c.Query("category")))
	activeOnly := true
	if raw := c.Query("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondBadRequest(c, "active must be true or false")
			return
		}
		activeOnly = v
	}

	list, err := tc.store.List(actorFrom(c), category, activeOnly)
	if err != nil {
		respondServiceError(c, err, "list templates")
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": list})
}

// Get returns one template
// GET /api/templates/:id
func (tc *TemplatesController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	tmpl, err := tc.store.Get(id)
	if err != nil {
		respondServiceError(c, err, "get template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// Create adds a template
// POST /api/templates
func (tc *TemplatesController) Create(c *gin.Context) {
	var in services.TemplateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	tmpl, err := tc.store.Create(actorFrom(c), in)
	if err != nil {
		respondServiceError(c, err, "create template")
		return
	}
	respondCreated(c, tmpl)
}

// Update changes a template
// PUT /api/templates/:id
func (tc *TemplatesController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in services.TemplateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	tmpl, err := tc.store.Update(actorFrom(c), id, in)
	if err != nil {
		respondServiceError(c, err, "update template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// Delete removes a template
// DELETE /api/templates/:id
func (tc *TemplatesController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := tc.store.Delete(actorFrom(c), id); err != nil {
		respondServiceError(c, err, "delete template")
		return
	}
	respondSuccess(c, "template deleted")
}
