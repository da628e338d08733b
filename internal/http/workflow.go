package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entities"
	"github.com/stories1001/publisher/internal/services"
	"github.com/stories1001/publisher/internal/workflow"
)

// IdempotencyKeyHeader lets clients retry a transition safely.
const IdempotencyKeyHeader = "Idempotency-Key"

type WorkflowController struct {
	engine      WorkflowEngine
	submissions SubmissionStore
}

func NewWorkflowController(engine WorkflowEngine, submissions SubmissionStore) *WorkflowController {
	return &WorkflowController{engine: engine, submissions: submissions}
}

type artifactsRequest struct {
	PDFPath   string `json:"pdf_path"`
	PageCount int    `json:"page_count"`
	Checksum  string `json:"checksum"`
}

// TransitionRequest is the body of a transition call.
type TransitionRequest struct {
	SubmissionID    uint                    `json:"submission_id,omitempty"` // bulk only
	Action          workflow.Action         `json:"action"`
	Reason          string                  `json:"reason"`
	TemplateID      *uint                   `json:"template_id"`
	ExpectedVersion int                     `json:"expected_version"`
	Mode            config.WorkflowMode     `json:"mode"`
	StoryManagerID  *uint                   `json:"story_manager_id"`
	BookManagerID   *uint                   `json:"book_manager_id"`
	FormatDecision  entities.FormatDecision `json:"format_decision"`
	Artifacts       *artifactsRequest       `json:"artifacts"`
	Metadata        map[string]any          `json:"metadata"`
}

func (r TransitionRequest) toWorkflow(id uint, actor services.Actor) workflow.TransitionRequest {
	req := workflow.TransitionRequest{
		SubmissionID:    id,
		Action:          workflow.Action(strings.ToUpper(string(r.Action))),
		ActorID:         actor.ID,
		ActorRole:       actor.Role,
		Reason:          r.Reason,
		TemplateID:      r.TemplateID,
		ExpectedVersion: r.ExpectedVersion,
		ModeOverride:    r.Mode,
		StoryManagerID:  r.StoryManagerID,
		BookManagerID:   r.BookManagerID,
		FormatDecision:  r.FormatDecision,
		Metadata:        r.Metadata,
	}
	if r.Artifacts != nil {
		req.Artifacts = &workflow.Artifacts{
			PDFPath:   r.Artifacts.PDFPath,
			PageCount: r.Artifacts.PageCount,
			Checksum:  r.Artifacts.Checksum,
		}
	}
	return req
}

// BulkTransitionRequest is the body of a bulk transition call.
type BulkTransitionRequest struct {
	DryRun      bool                `json:"dry_run"`
	Transitions []TransitionRequest `json:"transitions"`
}

// Transition executes one workflow action on a submission
// POST /api/submissions/:id/transitions
func (wc *WorkflowController) Transition(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body TransitionRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Action == "" {
		respondBadRequest(c, "action is required")
		return
	}

	key := c.GetHeader(IdempotencyKeyHeader)
	if key == "" {
		key = uuid.NewString()
	}
	c.Header(IdempotencyKeyHeader, key)

	req := body.toWorkflow(id, actorFrom(c))
	req.IdempotencyKey = key

	result, err := wc.engine.Execute(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "execute transition")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Preview validates a transition without applying it
// POST /api/submissions/:id/transitions/preview
func (wc *WorkflowController) Preview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body TransitionRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Action == "" {
		respondBadRequest(c, "action is required")
		return
	}

	result, to, err := wc.engine.Preview(c.Request.Context(), body.toWorkflow(id, actorFrom(c)))
	if err != nil {
		respondServiceError(c, err, "preview transition")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"validation": result,
		"to_status":  to,
	})
}

// Bulk runs many transitions, each validated on its own
// POST /api/workflow/bulk
func (wc *WorkflowController) Bulk(c *gin.Context) {
	var body BulkTransitionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if len(body.Transitions) == 0 {
		respondBadRequest(c, "transitions are required")
		return
	}
	if dry, err := strconv.ParseBool(c.Query("dry_run")); err == nil {
		body.DryRun = dry
	}

	actor := actorFrom(c)
	reqs := make([]workflow.TransitionRequest, 0, len(body.Transitions))
	for i, t := range body.Transitions {
		if t.SubmissionID == 0 || t.Action == "" {
			respondBadRequest(c, "transition "+strconv.Itoa(i)+" needs submission_id and action")
			return
		}
		reqs = append(reqs, t.toWorkflow(t.SubmissionID, actor))
	}

	result, err := wc.engine.ExecuteBulk(c.Request.Context(), reqs, body.DryRun)
	if err != nil {
		respondServiceError(c, err, "bulk transitions")
		return
	}
	c.JSON(http.StatusOK, result)
}

// History returns the transition history of a submission
// GET /api/submissions/:id/history
func (wc *WorkflowController) History(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := wc.submissions.Get(actorFrom(c), id); err != nil {
		respondServiceError(c, err, "workflow history")
		return
	}

	history, err := wc.engine.History(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "workflow history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"transitions": history})
}

// Actions lists what the caller may do next with a submission
// GET /api/submissions/:id/actions
func (wc *WorkflowController) Actions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor := actorFrom(c)
	sub, err := wc.submissions.Get(actor, id)
	if err != nil {
		respondServiceError(c, err, "possible actions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     sub.Status,
		"version":    sub.Version,
		"actions":    wc.engine.PossibleActions(sub, actor.ID, actor.Role),
		"progress":   workflow.Progress(sub.Status),
		"next_steps": workflow.NextSteps(sub.Status),
	})
}

// Steps lists the main path of a workflow mode
// GET /api/workflow/steps?mode=STANDARD
func (wc *WorkflowController) Steps(c *gin.Context) {
	mode := config.WorkflowMode(strings.ToUpper(c.DefaultQuery("mode", string(config.WorkflowModeStandard))))
	if !mode.IsValid() {
		respondBadRequest(c, "mode must be SIMPLE or STANDARD")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mode":         mode,
		"steps":        workflow.Steps(mode),
		"review_steps": workflow.ReviewSteps(),
	})
}

// Overdue lists submissions past their review or revision deadline
// GET /api/admin/sla/overdue
func (wc *WorkflowController) Overdue(c *gin.Context) {
	items, err := wc.engine.Overdue(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "list overdue")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// SendReminders runs one SLA sweep synchronously
// POST /api/admin/sla/run
func (wc *WorkflowController) SendReminders(c *gin.Context) {
	report, err := wc.engine.SendSLAReminders(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "sla reminders")
		return
	}
	c.JSON(http.StatusOK, report)
}
