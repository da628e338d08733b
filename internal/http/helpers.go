package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stories1001/publisher/internal/auth"
	"github.com/stories1001/publisher/internal/database/featured"
	"github.com/stories1001/publisher/internal/services"
	"github.com/stories1001/publisher/internal/settingsstore"
	"github.com/stories1001/publisher/internal/workflow"
)

// Machine-readable error codes.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	HasMore    bool  `json:"has_more"`
	TotalPages int   `json:"total_pages"`
}

func newPaginatedResponse(data any, total int64, page, pageSize int) PaginatedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		HasMore:    int64(page*pageSize) < total,
		TotalPages: totalPages,
	}
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: CodeValidation})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: CodeNotFound})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
// Use the specific helpers (respondBadRequest, respondNotFound, etc.) when possible.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError maps domain errors to HTTP responses. Anything it does
// not recognize is a 500.
func respondServiceError(c *gin.Context, err error, context string) {
	var terr *workflow.TransitionError
	if errors.As(err, &terr) {
		status, code := http.StatusUnprocessableEntity, CodeInvalidTransition
		switch {
		case terr.Result.Forbidden:
			status, code = http.StatusForbidden, CodeForbidden
		case terr.Result.VersionMismatch:
			status, code = http.StatusConflict, CodeConflict
		}
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code, Details: terr.Result})
		return
	}

	var verr *settingsstore.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Code: CodeValidation, Details: verr.Fields})
		return
	}

	switch {
	case errors.Is(err, services.ErrSubmissionNotFound),
		errors.Is(err, workflow.ErrSubmissionNotFound),
		errors.Is(err, services.ErrRevisionNotFound),
		errors.Is(err, services.ErrBookNotFound),
		errors.Is(err, services.ErrTemplateNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrMigrationNotFound),
		errors.Is(err, featured.ErrNoActiveSet):
		respondError(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, workflow.ErrForbidden):
		respondError(c, http.StatusForbidden, CodeForbidden, err.Error())
	case errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrNotEditable),
		errors.Is(err, services.ErrLastAdmin),
		errors.Is(err, workflow.ErrVersionMismatch):
		respondError(c, http.StatusConflict, CodeConflict, err.Error())
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidFeaturedSelection),
		errors.Is(err, services.ErrNoFeaturedCandidates),
		errors.Is(err, workflow.ErrBulkTooLarge),
		errors.Is(err, workflow.ErrInvalidTransition):
		respondError(c, http.StatusBadRequest, CodeValidation, err.Error())
	default:
		respondInternalError(c, err, context)
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Request Context ---

// actorFrom builds the service actor from the authenticated user.
func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{ID: auth.GetUserID(c), Role: auth.GetUserRole(c)}
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseQueryID extracts and validates an unsigned integer ID from query parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseQueryID(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Query(paramName)
	if idStr == "" {
		respondBadRequest(c, paramName+" is required")
		return 0, false
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseIntParam extracts a positive integer from URL parameters.
func parseIntParam(c *gin.Context, paramName string) (int, bool) {
	n, err := strconv.Atoi(c.Param(paramName))
	if err != nil || n < 1 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return n, true
}

// parsePage reads page and page_size query values, falling back to defaults.
func parsePage(c *gin.Context, defaultSize, maxSize int) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultSize)))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxSize {
		pageSize = defaultSize
	}
	return page, pageSize
}

// queryLimit reads the limit query value, bounded by maxLimit.
func queryLimit(c *gin.Context, defaultLimit, maxLimit int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
