package workflow

import (
	"fmt"
	"reflect"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entities"
)

// Context carries everything Validate needs to judge a transition.
type Context struct {
	ActorID   uint
	ActorRole entities.UserRole
	Mode      config.WorkflowMode

	// Fields holds the submission data after the request's input is applied.
	Fields map[string]any

	AuthorID       uint
	StoryManagerID *uint
	BookManagerID  *uint

	CurrentVersion  int
	ExpectedVersion int // zero skips the check
	TemplateID      *uint
}

// ValidationResult is the outcome of Validate. Warnings never block a transition.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`

	// Forbidden is set when the actor, not the data, is the problem.
	Forbidden bool `json:"-"`
	// VersionMismatch is set when ExpectedVersion differs from CurrentVersion.
	VersionMismatch bool `json:"-"`
}

func (v *ValidationResult) fail(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *ValidationResult) warn(msg string) {
	v.Warnings = append(v.Warnings, msg)
}

// Validate checks a transition against the rule table, the actor and the data.
func Validate(from, to entities.PublishingStatus, action Action, ctx Context) ValidationResult {
	result := ValidationResult{Errors: []string{}, Warnings: []string{}}

	rule, ok := FindRule(from, to, action, ctx.Mode)
	if !ok {
		result.fail("Transition from %s to %s with action %s is not allowed in %s mode", from, to, action, ctx.Mode)
		return result
	}

	if !rule.allows(ctx.ActorRole) {
		result.Forbidden = true
		result.fail("Role %s is not authorized to perform %s", ctx.ActorRole, action)
	}

	if msg := checkGuard(rule.Guard, ctx); msg != "" {
		result.Forbidden = true
		result.fail("%s", msg)
	}

	for _, field := range rule.RequiredFields {
		if isEmpty(ctx.Fields[field]) {
			result.fail("Required field '%s' is missing or empty", field)
		}
	}

	for _, cond := range rule.Conditions {
		if msg := checkCondition(cond, ctx.Fields[cond.Field]); msg != "" {
			result.fail("%s", msg)
		}
	}

	validateBusinessRules(from, to, ctx, &result)

	result.Valid = len(result.Errors) == 0
	return result
}

func validateBusinessRules(from, to entities.PublishingStatus, ctx Context, result *ValidationResult) {
	backward := [][2]entities.PublishingStatus{
		{entities.StatusPublished, entities.StatusApproved},
		{entities.StatusPublished, entities.StatusPending},
		{entities.StatusApproved, entities.StatusPending},
	}
	for _, edge := range backward {
		if from == edge[0] && to == edge[1] {
			result.fail("Backward transition from %s to %s is not allowed", from, to)
		}
	}

	if from == entities.StatusArchived && to == entities.StatusArchived {
		result.fail("Content is already archived")
	}
	if from == entities.StatusArchived && to != entities.StatusDraft {
		result.fail("Archived content can only be restored to DRAFT status")
	}

	if to == entities.StatusNeedsRevision && ctx.TemplateID == nil {
		result.warn("Consider using a rejection template for consistent feedback")
	}

	if ctx.ExpectedVersion != 0 && ctx.ExpectedVersion != ctx.CurrentVersion {
		result.VersionMismatch = true
		result.fail("Version mismatch detected. Please refresh and try again.")
	}
}

func checkGuard(guard Guard, ctx Context) string {
	switch guard {
	case GuardAuthor:
		if ctx.ActorID != ctx.AuthorID {
			return "Only the author can submit this content"
		}
	case GuardStoryManager:
		if ctx.ActorRole == entities.UserRoleAdmin {
			return ""
		}
		if ctx.StoryManagerID == nil || *ctx.StoryManagerID != ctx.ActorID {
			return "Only the assigned story manager can review this submission"
		}
	case GuardBookManager:
		if ctx.ActorRole == entities.UserRoleAdmin {
			return ""
		}
		if ctx.BookManagerID == nil || *ctx.BookManagerID != ctx.ActorID {
			return "Only the assigned book manager can decide the format"
		}
	}
	return ""
}

func checkCondition(cond Condition, value any) string {
	switch cond.Op {
	case OpEquals:
		if !reflect.DeepEqual(value, cond.Value) {
			return fmt.Sprintf("Field '%s' must equal %v", cond.Field, cond.Value)
		}
	case OpNotEquals:
		if reflect.DeepEqual(value, cond.Value) {
			return fmt.Sprintf("Field '%s' must not equal %v", cond.Field, cond.Value)
		}
	case OpExists:
		if isEmpty(value) {
			return fmt.Sprintf("Field '%s' must exist", cond.Field)
		}
	case OpNotExists:
		if !isEmpty(value) {
			return fmt.Sprintf("Field '%s' must not exist", cond.Field)
		}
	case OpGreaterThan:
		n, ok := toFloat(value)
		limit, _ := toFloat(cond.Value)
		if !ok || n <= limit {
			return fmt.Sprintf("Field '%s' must be greater than %v", cond.Field, cond.Value)
		}
	case OpLessThan:
		n, ok := toFloat(value)
		limit, _ := toFloat(cond.Value)
		if !ok || n >= limit {
			return fmt.Sprintf("Field '%s' must be less than %v", cond.Field, cond.Value)
		}
	}
	return ""
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case int:
		return val == 0
	case *uint:
		return val == nil
	case uint:
		return val == 0
	case entities.FormatDecision:
		return val == ""
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// SubmissionFields snapshots the validated fields of a submission.
func SubmissionFields(sub *entities.Submission) map[string]any {
	return map[string]any{
		FieldTitle:          sub.Title,
		FieldAuthorName:     sub.AuthorName,
		FieldContent:        sub.Content,
		FieldSummary:        sub.Summary,
		FieldPDFPath:        sub.PDFPath,
		FieldPageCount:      sub.PageCount,
		FieldChecksum:       sub.Checksum,
		FieldStoryManager:   sub.StoryManagerID,
		FieldBookManager:    sub.BookManagerID,
		FieldFormatDecision: sub.FormatDecision,
		FieldRevisionReason: sub.RevisionReason,
	}
}

// CheckInvariants verifies that a submission's data is consistent with its status.
func CheckInvariants(sub *entities.Submission, actorRole entities.UserRole) ValidationResult {
	result := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if sub.PublishedAt != nil && sub.Status != entities.StatusPublished {
		result.fail("Book has publishedAt date but status is not PUBLISHED")
	}
	if sub.Status == entities.StatusPublished && sub.PublishedAt == nil {
		result.fail("Published book must have publishedAt timestamp")
	}
	if actorRole == entities.UserRoleLearner && sub.Status == entities.StatusPublished {
		result.warn("Learner attempting to publish content - verify permissions")
	}

	result.Valid = len(result.Errors) == 0
	return result
}
