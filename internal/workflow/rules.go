// Package workflow implements the publishing state machine: the transition
// rule table, validation, and the Manager that executes transitions
// atomically against the database.
package workflow

import (
	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entities"
)

// Action names a workflow step a user can take on a submission.
type Action string

const (
	ActionSubmit             Action = "SUBMIT"
	ActionResubmit           Action = "RESUBMIT"
	ActionAssignStoryManager Action = "ASSIGN_STORY_MANAGER"
	ActionStoryApprove       Action = "STORY_APPROVE"
	ActionAssignBookManager  Action = "ASSIGN_BOOK_MANAGER"
	ActionFormatDecision     Action = "FORMAT_DECISION"
	ActionApprove            Action = "APPROVE"
	ActionPublish            Action = "PUBLISH"
	ActionRequestRevision    Action = "REQUEST_REVISION"
	ActionReject             Action = "REJECT"
	ActionArchive            Action = "ARCHIVE"
	ActionRestore            Action = "RESTORE"
	ActionUnpublish          Action = "UNPUBLISH"
)

// AllActions lists every known Action.
var AllActions = []Action{
	ActionSubmit,
	ActionResubmit,
	ActionAssignStoryManager,
	ActionStoryApprove,
	ActionAssignBookManager,
	ActionFormatDecision,
	ActionApprove,
	ActionPublish,
	ActionRequestRevision,
	ActionReject,
	ActionArchive,
	ActionRestore,
	ActionUnpublish,
}

func (a Action) IsValid() bool {
	for _, action := range AllActions {
		if action == a {
			return true
		}
	}
	return false
}

// Field names used by RequiredFields and Conditions.
const (
	FieldTitle          = "title"
	FieldAuthorName     = "authorName"
	FieldContent        = "content"
	FieldSummary        = "summary"
	FieldPDFPath        = "pdfPath"
	FieldPageCount      = "pageCount"
	FieldChecksum       = "checksum"
	FieldStoryManager   = "storyManager"
	FieldBookManager    = "bookManager"
	FieldFormatDecision = "formatDecision"
	FieldRevisionReason = "revisionReason"
)

// ConditionOp is the comparison a Condition applies to a field.
type ConditionOp string

const (
	OpEquals      ConditionOp = "equals"
	OpNotEquals   ConditionOp = "not_equals"
	OpExists      ConditionOp = "exists"
	OpNotExists   ConditionOp = "not_exists"
	OpGreaterThan ConditionOp = "greater_than"
	OpLessThan    ConditionOp = "less_than"
)

// Condition is an extra check on a submission field that a rule requires.
type Condition struct {
	Field string
	Op    ConditionOp
	Value any
}

// Guard restricts a rule to a specific actor beyond the role check.
type Guard int

const (
	GuardNone Guard = iota
	// GuardAuthor requires the actor to be the submission's author.
	GuardAuthor
	// GuardStoryManager requires the actor to be the assigned story manager. ADMIN bypasses.
	GuardStoryManager
	// GuardBookManager requires the actor to be the assigned book manager. ADMIN bypasses.
	GuardBookManager
)

// Rule is one allowed edge of the state machine.
type Rule struct {
	From           entities.PublishingStatus
	To             entities.PublishingStatus
	Action         Action
	AllowedRoles   []entities.UserRole
	RequiredFields []string
	Conditions     []Condition
	Guard          Guard
	// Modes lists the workflow modes the rule applies to. Empty means all.
	Modes       []config.WorkflowMode
	Description string
}

func (r Rule) appliesTo(mode config.WorkflowMode) bool {
	if len(r.Modes) == 0 {
		return true
	}
	for _, m := range r.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

func (r Rule) allows(role entities.UserRole) bool {
	for _, allowed := range r.AllowedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

var (
	simpleOnly   = []config.WorkflowMode{config.WorkflowModeSimple}
	standardOnly = []config.WorkflowMode{config.WorkflowModeStandard}

	contentFields = []string{FieldTitle, FieldAuthorName, FieldContent}
	reviewFields  = []string{FieldTitle, FieldAuthorName, FieldContent, FieldSummary}

	authors   = entities.AuthorRoles
	reviewers = []entities.UserRole{
		entities.UserRoleStoryManager,
		entities.UserRoleBookManager,
		entities.UserRoleContentAdmin,
		entities.UserRoleAdmin,
	}
	coordinators = []entities.UserRole{
		entities.UserRoleContentAdmin,
		entities.UserRoleAdmin,
		entities.UserRoleCoordinator,
	}
	admins = []entities.UserRole{entities.UserRoleAdmin, entities.UserRoleContentAdmin}
)

// Rules is the complete transition table.
var Rules = []Rule{
	{
		From: entities.StatusDraft, To: entities.StatusPending, Action: ActionSubmit,
		AllowedRoles: authors, RequiredFields: contentFields, Guard: GuardAuthor,
		Description: "Submit for review",
	},
	{
		From: entities.StatusPending, To: entities.StatusPublished, Action: ActionApprove,
		AllowedRoles: reviewers, RequiredFields: reviewFields, Modes: simpleOnly,
		Description: "Approve and publish",
	},
	{
		From: entities.StatusPending, To: entities.StatusApproved, Action: ActionApprove,
		AllowedRoles:   []entities.UserRole{entities.UserRoleStoryManager, entities.UserRoleBookManager},
		RequiredFields: reviewFields, Modes: standardOnly,
		Description: "Approve for publishing",
	},
	{
		From: entities.StatusApproved, To: entities.StatusPublished, Action: ActionPublish,
		AllowedRoles:   admins,
		RequiredFields: []string{FieldPDFPath, FieldPageCount, FieldChecksum},
		Conditions:     []Condition{{Field: FieldPageCount, Op: OpGreaterThan, Value: 0}},
		Modes:          standardOnly,
		Description:    "Publish to the library",
	},
	{
		From: entities.StatusPending, To: entities.StatusStoryReview, Action: ActionAssignStoryManager,
		AllowedRoles: coordinators, RequiredFields: []string{FieldStoryManager}, Modes: standardOnly,
		Description: "Assign a story manager",
	},
	{
		From: entities.StatusStoryReview, To: entities.StatusStoryApproved, Action: ActionStoryApprove,
		AllowedRoles: []entities.UserRole{entities.UserRoleStoryManager, entities.UserRoleAdmin},
		Guard:        GuardStoryManager, Modes: standardOnly,
		Description: "Approve the story",
	},
	{
		From: entities.StatusStoryReview, To: entities.StatusNeedsRevision, Action: ActionRequestRevision,
		AllowedRoles:   []entities.UserRole{entities.UserRoleStoryManager, entities.UserRoleAdmin},
		RequiredFields: []string{FieldRevisionReason}, Guard: GuardStoryManager, Modes: standardOnly,
		Description: "Request revision from the author",
	},
	{
		From: entities.StatusStoryApproved, To: entities.StatusFormatReview, Action: ActionAssignBookManager,
		AllowedRoles: coordinators, RequiredFields: []string{FieldBookManager}, Modes: standardOnly,
		Description: "Assign a book manager",
	},
	{
		From: entities.StatusFormatReview, To: entities.StatusContentReview, Action: ActionFormatDecision,
		AllowedRoles:   []entities.UserRole{entities.UserRoleBookManager, entities.UserRoleAdmin},
		RequiredFields: []string{FieldFormatDecision}, Guard: GuardBookManager, Modes: standardOnly,
		Description: "Decide the publication format",
	},
	{
		From: entities.StatusContentReview, To: entities.StatusPublished, Action: ActionApprove,
		AllowedRoles: admins, RequiredFields: reviewFields, Modes: standardOnly,
		Description: "Final approval and publish",
	},
	{
		From: entities.StatusPending, To: entities.StatusNeedsRevision, Action: ActionRequestRevision,
		AllowedRoles: reviewers, RequiredFields: []string{FieldRevisionReason},
		Description: "Request revision from the author",
	},
	{
		From: entities.StatusApproved, To: entities.StatusNeedsRevision, Action: ActionRequestRevision,
		AllowedRoles: admins, RequiredFields: []string{FieldRevisionReason}, Modes: standardOnly,
		Description: "Send back for revision",
	},
	{
		From: entities.StatusNeedsRevision, To: entities.StatusPending, Action: ActionResubmit,
		AllowedRoles: authors, RequiredFields: contentFields, Guard: GuardAuthor,
		Description: "Resubmit after revision",
	},
	rejectFrom(entities.StatusPending, nil),
	rejectFrom(entities.StatusStoryReview, standardOnly),
	rejectFrom(entities.StatusFormatReview, standardOnly),
	rejectFrom(entities.StatusContentReview, standardOnly),
	rejectFrom(entities.StatusApproved, standardOnly),
	archiveFrom(entities.StatusDraft, admins, nil),
	archiveFrom(entities.StatusPending, admins, nil),
	archiveFrom(entities.StatusNeedsRevision, admins, nil),
	archiveFrom(entities.StatusRejected, admins, nil),
	archiveFrom(entities.StatusApproved, admins, standardOnly),
	archiveFrom(entities.StatusPublished, []entities.UserRole{entities.UserRoleAdmin}, nil),
	{
		From: entities.StatusPublished, To: entities.StatusArchived, Action: ActionUnpublish,
		AllowedRoles: []entities.UserRole{entities.UserRoleAdmin},
		Description:  "Remove from the library",
	},
	{
		From: entities.StatusArchived, To: entities.StatusDraft, Action: ActionRestore,
		AllowedRoles: admins,
		Description:  "Restore to draft",
	},
}

func rejectFrom(from entities.PublishingStatus, modes []config.WorkflowMode) Rule {
	return Rule{
		From: from, To: entities.StatusRejected, Action: ActionReject,
		AllowedRoles: reviewers, RequiredFields: []string{FieldRevisionReason}, Modes: modes,
		Description: "Reject the submission",
	}
}

func archiveFrom(from entities.PublishingStatus, roles []entities.UserRole, modes []config.WorkflowMode) Rule {
	return Rule{
		From: from, To: entities.StatusArchived, Action: ActionArchive,
		AllowedRoles: roles, Modes: modes,
		Description: "Archive",
	}
}

// FindRule returns the rule for an exact edge in the given mode.
func FindRule(from, to entities.PublishingStatus, action Action, mode config.WorkflowMode) (Rule, bool) {
	for _, r := range Rules {
		if r.From == from && r.To == to && r.Action == action && r.appliesTo(mode) {
			return r, true
		}
	}
	return Rule{}, false
}

// TargetStatus resolves where an action leads from the current status in a mode.
func TargetStatus(current entities.PublishingStatus, action Action, mode config.WorkflowMode) (entities.PublishingStatus, bool) {
	for _, r := range Rules {
		if r.From == current && r.Action == action && r.appliesTo(mode) {
			return r.To, true
		}
	}
	return "", false
}

// ValidTransitions lists the rules a role may use from a status in a mode.
func ValidTransitions(from entities.PublishingStatus, role entities.UserRole, mode config.WorkflowMode) []Rule {
	var rules []Rule
	for _, r := range Rules {
		if r.From == from && r.allows(role) && r.appliesTo(mode) {
			rules = append(rules, r)
		}
	}
	return rules
}

// IsAllowed checks the edge and role without looking at submission data.
func IsAllowed(from, to entities.PublishingStatus, action Action, role entities.UserRole, mode config.WorkflowMode) bool {
	r, ok := FindRule(from, to, action, mode)
	return ok && r.allows(role)
}

// Steps returns the main line of statuses for a mode.
func Steps(mode config.WorkflowMode) []entities.PublishingStatus {
	if mode == config.WorkflowModeSimple {
		return []entities.PublishingStatus{
			entities.StatusDraft,
			entities.StatusPending,
			entities.StatusPublished,
		}
	}
	return []entities.PublishingStatus{
		entities.StatusDraft,
		entities.StatusPending,
		entities.StatusApproved,
		entities.StatusPublished,
	}
}

// ReviewSteps returns the multi-stage review line used by story and book managers.
func ReviewSteps() []entities.PublishingStatus {
	return []entities.PublishingStatus{
		entities.StatusDraft,
		entities.StatusPending,
		entities.StatusStoryReview,
		entities.StatusStoryApproved,
		entities.StatusFormatReview,
		entities.StatusContentReview,
		entities.StatusPublished,
	}
}
