package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stories1001/publisher/internal/auth"
	"github.com/stories1001/publisher/internal/database/featured"
)

const defaultFeaturedHistory = 10

type FeaturedController struct {
	featured FeaturedStore
	jobs     JobTrigger
}

// NewFeaturedController creates a FeaturedController. jobs may be nil, in
// which case rotations run inside the request.
func NewFeaturedController(store FeaturedStore, jobs JobTrigger) *FeaturedController {
	return &FeaturedController{featured: store, jobs: jobs}
}

type setFeaturedRequest struct {
	BookIDs      []uint `json:"book_ids"`
	DurationDays int    `json:"duration_days"`
}

// Current returns the active featured set with its books
// GET /api/featured
func (fc *FeaturedController) Current(c *gin.Context) {
	view, err := fc.featured.Current()
	if err != nil {
		if errors.Is(err, featured.ErrNoActiveSet) {
			c.JSON(http.StatusOK, gin.H{"set": nil, "books": []any{}})
			return
		}
		respondServiceError(c, err, "current featured")
		return
	}
	c.JSON(http.StatusOK, view)
}

// History returns recent featured sets
// GET /api/featured/history
func (fc *FeaturedController) History(c *gin.Context) {
	sets, err := fc.featured.History(queryLimit(c, defaultFeaturedHistory, 100))
	if err != nil {
		respondInternalError(c, err, "featured history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sets": sets})
}

// SetManual replaces the active set with a hand-picked one
// POST /api/admin/featured
func (fc *FeaturedController) SetManual(c *gin.Context) {
	var req setFeaturedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	view, err := fc.featured.SetManual(req.BookIDs, req.DurationDays, auth.GetUserID(c))
	if err != nil {
		respondServiceError(c, err, "set featured")
		return
	}
	respondCreated(c, view)
}

// Rotate triggers an automatic rotation
// POST /api/admin/featured/rotate?force=true
func (fc *FeaturedController) Rotate(c *gin.Context) {
	force, _ := strconv.ParseBool(c.Query("force"))

	if fc.jobs != nil {
		if err := fc.jobs.RotateFeatured(c.Request.Context(), force); err != nil {
			respondInternalError(c, err, "enqueue featured rotation")
			return
		}
		respondAccepted(c, "rotation scheduled", gin.H{"force": force})
		return
	}

	result, err := fc.featured.Rotate(c.Request.Context(), force)
	if err != nil {
		respondServiceError(c, err, "rotate featured")
		return
	}
	c.JSON(http.StatusOK, result)
}
