package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stories1001/publisher/internal/entities"
	"github.com/stories1001/publisher/internal/services"
	"github.com/stories1001/publisher/internal/workflow"
)

type SubmissionsController struct {
	store    SubmissionStore
	workflow WorkflowEngine
}

func NewSubmissionsController(store SubmissionStore, engine WorkflowEngine) *SubmissionsController {
	return &SubmissionsController{store: store, workflow: engine}
}

// SubmissionDetail is a submission with its place in the pipeline.
type SubmissionDetail struct {
	Submission *entities.Submission        `json:"submission"`
	Progress   workflow.ProgressInfo       `json:"progress"`
	NextSteps  []string                    `json:"next_steps"`
	Actions    []workflow.AvailableAction  `json:"available_actions"`
}

// parseListOptions reads status, kind and paging from the query string.
func parseListOptions(c *gin.Context) (services.SubmissionListOptions, bool) {
	var opts services.SubmissionListOptions
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := entities.PublishingStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !status.IsValid() {
				respondBadRequest(c, "invalid status "+part)
				return opts, false
			}
			opts.Statuses = append(opts.Statuses, status)
		}
	}
	if raw := c.Query("kind"); raw != "" {
		kind := entities.SubmissionKind(strings.ToUpper(raw))
		if !kind.IsValid() {
			respondBadRequest(c, "invalid kind "+raw)
			return opts, false
		}
		opts.Kind = kind
	}
	opts.Page, opts.PageSize = parsePage(c, 20, 100)
	return opts, true
}

// ListOwn returns the current user's submissions
// GET /api/submissions
func (sc *SubmissionsController) ListOwn(c *gin.Context) {
	opts, ok := parseListOptions(c)
	if !ok {
		return
	}
	subs, total, err := sc.store.ListOwn(actorFrom(c), opts)
	if err != nil {
		respondServiceError(c, err, "list own submissions")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(subs, total, opts.Page, opts.PageSize))
}

// Queue returns the review queue for the current reviewer
// GET /api/submissions/queue
func (sc *SubmissionsController) Queue(c *gin.Context) {
	opts, ok := parseListOptions(c)
	if !ok {
		return
	}
	subs, total, err := sc.store.Queue(actorFrom(c), opts)
	if err != nil {
		respondServiceError(c, err, "review queue")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(subs, total, opts.Page, opts.PageSize))
}

// Create starts a new draft
// POST /api/submissions
func (sc *SubmissionsController) Create(c *gin.Context) {
	var in services.SubmissionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	sub, err := sc.store.Create(actorFrom(c), in)
	if err != nil {
		respondServiceError(c, err, "create submission")
		return
	}
	respondCreated(c, sub)
}

// Get returns one submission with its progress and the actions open to the caller
// GET /api/submissions/:id
func (sc *SubmissionsController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actor := actorFrom(c)
	sub, err := sc.store.Get(actor, id)
	if err != nil {
		respondServiceError(c, err, "get submission")
		return
	}

	detail := SubmissionDetail{
		Submission: sub,
		Progress:   workflow.Progress(sub.Status),
		NextSteps:  workflow.NextSteps(sub.Status),
		Actions:    []workflow.AvailableAction{},
	}
	if sc.workflow != nil {
		detail.Actions = sc.workflow.PossibleActions(sub, actor.ID, actor.Role)
	}
	c.JSON(http.StatusOK, detail)
}

// Update edits a draft or a submission returned for revision
// PUT /api/submissions/:id
func (sc *SubmissionsController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var in services.SubmissionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	sub, err := sc.store.Update(actorFrom(c), id, in)
	if err != nil {
		respondServiceError(c, err, "update submission")
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Delete removes a submission
// DELETE /api/submissions/:id
func (sc *SubmissionsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := sc.store.Delete(actorFrom(c), id); err != nil {
		respondServiceError(c, err, "delete submission")
		return
	}
	respondSuccess(c, "submission deleted")
}

// Revisions lists the content snapshots of a submission
// GET /api/submissions/:id/revisions
func (sc *SubmissionsController) Revisions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	revs, err := sc.store.Revisions(actorFrom(c), id)
	if err != nil {
		respondServiceError(c, err, "list revisions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"revisions": revs})
}

// Diff compares two revisions
// GET /api/submissions/:id/revisions/diff?from=1&to=2
func (sc *SubmissionsController) Diff(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	from, errFrom := strconv.Atoi(c.Query("from"))
	to, errTo := strconv.Atoi(c.Query("to"))
	if errFrom != nil || errTo != nil || from < 1 || to < 1 {
		respondBadRequest(c, "from and to must be revision numbers")
		return
	}

	diff, err := sc.store.DiffRevisions(actorFrom(c), id, from, to)
	if err != nil {
		respondServiceError(c, err, "diff revisions")
		return
	}
	c.JSON(http.StatusOK, diff)
}
