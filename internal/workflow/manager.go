package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/audit"
	"github.com/stories1001/publisher/internal/config"
	auditdb "github.com/stories1001/publisher/internal/database/audit"
	"github.com/stories1001/publisher/internal/database/books"
	"github.com/stories1001/publisher/internal/database/submissions"
	"github.com/stories1001/publisher/internal/database/templates"
	"github.com/stories1001/publisher/internal/database/users"
	"github.com/stories1001/publisher/internal/entities"
	"github.com/stories1001/publisher/internal/settingsstore"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrForbidden          = errors.New("not allowed to perform this action")
	ErrVersionMismatch    = errors.New("version mismatch")

	// ErrIdempotencyKeyReused means the key already belongs to another actor, submission or action.
	ErrIdempotencyKeyReused = errors.New("idempotency key reused for a different request")
)

// TransitionError carries the validation outcome of a rejected transition.
type TransitionError struct {
	Result ValidationResult
	err    error
}

func (e *TransitionError) Error() string {
	return "invalid transition: " + strings.Join(e.Result.Errors, "; ")
}

func (e *TransitionError) Is(target error) bool {
	switch target {
	case ErrInvalidTransition:
		return true
	case ErrForbidden:
		return e.Result.Forbidden
	case ErrVersionMismatch:
		return e.Result.VersionMismatch
	}
	return false
}

func (e *TransitionError) Unwrap() error {
	return e.err
}

func keyReused(key string) *TransitionError {
	terr := invalid("Idempotency key %q was already used for a different request", key)
	terr.err = ErrIdempotencyKeyReused
	return terr
}

func invalid(format string, args ...any) *TransitionError {
	return &TransitionError{Result: ValidationResult{
		Errors:   []string{fmt.Sprintf(format, args...)},
		Warnings: []string{},
	}}
}

// Artifacts are the production files a book needs before it is published.
type Artifacts struct {
	PDFPath   string
	PageCount int
	Checksum  string
}

type TransitionRequest struct {
	SubmissionID uint
	Action       Action
	ActorID      uint
	ActorRole    entities.UserRole

	Reason     string
	TemplateID *uint

	// ExpectedVersion is the version the client last saw. Zero skips the check.
	ExpectedVersion int
	IdempotencyKey  string
	ModeOverride    config.WorkflowMode

	StoryManagerID *uint
	BookManagerID  *uint
	FormatDecision entities.FormatDecision
	Artifacts      *Artifacts

	Metadata map[string]any
}

type TransitionResult struct {
	SubmissionID  uint                      `json:"submission_id"`
	Action        Action                    `json:"action"`
	FromStatus    entities.PublishingStatus `json:"from_status"`
	ToStatus      entities.PublishingStatus `json:"to_status"`
	Version       int                       `json:"version"`
	TransitionID  uint                      `json:"transition_id"`
	BookID        *uint                     `json:"book_id,omitempty"`
	CorrelationID string                    `json:"correlation_id"`
	Warnings      []string                  `json:"warnings"`
	Cached        bool                      `json:"cached"`
}

// TransitionEvent is handed to the Notifier after a transition commits.
type TransitionEvent struct {
	SubmissionID   uint                      `json:"submission_id"`
	Title          string                    `json:"title"`
	AuthorID       uint                      `json:"author_id"`
	AuthorName     string                    `json:"author_name"`
	FromStatus     entities.PublishingStatus `json:"from_status"`
	ToStatus       entities.PublishingStatus `json:"to_status"`
	Action         Action                    `json:"action"`
	ActorID        uint                      `json:"actor_id"`
	ActorRole      entities.UserRole         `json:"actor_role"`
	Reason         string                    `json:"reason,omitempty"`
	StoryManagerID *uint                     `json:"story_manager_id,omitempty"`
	BookManagerID  *uint                     `json:"book_manager_id,omitempty"`
	CorrelationID  string                    `json:"correlation_id"`
}

// Notifier delivers transition events. Implementations should not block.
type Notifier interface {
	NotifyTransition(ctx context.Context, event TransitionEvent) error
}

// SettingsProvider supplies the effective workflow settings.
type SettingsProvider interface {
	GetWorkflowSettings() settingsstore.WorkflowSettings
}

type Manager struct {
	db       *gorm.DB
	settings SettingsProvider
	audit    *audit.Service
	notifier Notifier
	clock    clock.Clock
	cache    *idempotencyCache
}

func NewManager(db *gorm.DB, settings SettingsProvider, auditService *audit.Service, clk clock.Clock, idempotencyWindow time.Duration) *Manager {
	if clk == nil {
		clk = clock.WallClock
	}
	if idempotencyWindow <= 0 {
		idempotencyWindow = 5 * time.Second
	}
	return &Manager{
		db:       db,
		settings: settings,
		audit:    auditService,
		clock:    clk,
		cache:    newIdempotencyCache(clk, idempotencyWindow),
	}
}

// SetNotifier wires the notification delivery. Without one, events are only logged.
func (m *Manager) SetNotifier(n Notifier) {
	m.notifier = n
}

// Settings returns the effective workflow settings.
func (m *Manager) Settings() settingsstore.WorkflowSettings {
	return m.settings.GetWorkflowSettings()
}

// plan is a validated transition ready to be applied.
type plan struct {
	req      TransitionRequest
	sub      *entities.Submission
	to       entities.PublishingStatus
	reason   string
	template *entities.RejectionTemplate
	result   ValidationResult
}

// Execute validates and applies one transition.
func (m *Manager) Execute(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if req.IdempotencyKey != "" {
		cached, err := m.cache.acquire(ctx, req.IdempotencyKey, scopeOf(req))
		if err != nil {
			return nil, err
		}
		if cached != nil {
			cached.Cached = true
			return cached, nil
		}
	}

	result, event, err := m.run(ctx, req)
	if req.IdempotencyKey != "" {
		m.cache.release(req.IdempotencyKey, result)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[WORKFLOW] Submission %d: %s -> %s (%s by user %d)",
		result.SubmissionID, result.FromStatus, result.ToStatus, result.Action, req.ActorID)

	m.notify(ctx, event)

	return result, nil
}

func (m *Manager) run(ctx context.Context, req TransitionRequest) (*TransitionResult, TransitionEvent, error) {
	p, err := m.prepare(ctx, req)
	if err != nil {
		return nil, TransitionEvent{}, err
	}
	return m.apply(ctx, p)
}

// Preview validates a transition without applying it.
func (m *Manager) Preview(ctx context.Context, req TransitionRequest) (ValidationResult, entities.PublishingStatus, error) {
	p, err := m.prepare(ctx, req)
	if err != nil {
		var terr *TransitionError
		if errors.As(err, &terr) {
			return terr.Result, "", nil
		}
		return ValidationResult{}, "", err
	}
	return p.result, p.to, nil
}

func (m *Manager) resolveMode(override config.WorkflowMode) config.WorkflowMode {
	ws := m.settings.GetWorkflowSettings()
	if override != "" && override.IsValid() && ws.AllowModeOverride {
		return override
	}
	return ws.Mode
}

func (m *Manager) prepare(ctx context.Context, req TransitionRequest) (*plan, error) {
	if !req.Action.IsValid() {
		return nil, invalid("Unknown action %s", req.Action)
	}

	db := m.db.WithContext(ctx)
	sub, err := submissions.NewRepository(db).GetByID(req.SubmissionID)
	if err != nil {
		if errors.Is(err, submissions.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	mode := m.resolveMode(req.ModeOverride)
	to, ok := TargetStatus(sub.Status, req.Action, mode)
	if !ok {
		return nil, invalid("Action %s is not available from %s in %s mode", req.Action, sub.Status, mode)
	}

	reason := strings.TrimSpace(req.Reason)
	var tmpl *entities.RejectionTemplate
	if req.TemplateID != nil {
		tmpl, err = templates.NewRepository(db).GetByID(*req.TemplateID)
		if err != nil {
			if errors.Is(err, templates.ErrTemplateNotFound) {
				return nil, invalid("Rejection template %d not found", *req.TemplateID)
			}
			return nil, fmt.Errorf("failed to load template: %w", err)
		}
		if !tmpl.IsActive || !tmpl.AppliesTo(req.ActorRole) {
			return nil, invalid("Rejection template %d is not available for role %s", tmpl.ID, req.ActorRole)
		}
		if reason == "" {
			reason = tmpl.Message
		}
	}

	if req.Action == ActionFormatDecision && req.FormatDecision != "" && !req.FormatDecision.IsValid() {
		return nil, invalid("Format decision must be TEXT or BOOK")
	}

	fields := SubmissionFields(sub)
	applyInput(fields, req, reason)

	result := Validate(sub.Status, to, req.Action, Context{
		ActorID:         req.ActorID,
		ActorRole:       req.ActorRole,
		Mode:            mode,
		Fields:          fields,
		AuthorID:        sub.AuthorID,
		StoryManagerID:  sub.StoryManagerID,
		BookManagerID:   sub.BookManagerID,
		CurrentVersion:  sub.Version,
		ExpectedVersion: req.ExpectedVersion,
		TemplateID:      req.TemplateID,
	})
	if !result.Valid {
		return nil, &TransitionError{Result: result}
	}

	if err := m.checkAssignee(db, req); err != nil {
		return nil, err
	}

	return &plan{req: req, sub: sub, to: to, reason: reason, template: tmpl, result: result}, nil
}

func applyInput(fields map[string]any, req TransitionRequest, reason string) {
	switch req.Action {
	case ActionAssignStoryManager:
		fields[FieldStoryManager] = req.StoryManagerID
	case ActionAssignBookManager:
		fields[FieldBookManager] = req.BookManagerID
	case ActionFormatDecision:
		fields[FieldFormatDecision] = req.FormatDecision
	case ActionRequestRevision, ActionReject:
		fields[FieldRevisionReason] = reason
	}
	if a := req.Artifacts; a != nil {
		if a.PDFPath != "" {
			fields[FieldPDFPath] = a.PDFPath
		}
		if a.PageCount != 0 {
			fields[FieldPageCount] = a.PageCount
		}
		if a.Checksum != "" {
			fields[FieldChecksum] = a.Checksum
		}
	}
}

func (m *Manager) checkAssignee(db *gorm.DB, req TransitionRequest) error {
	var id *uint
	var role entities.UserRole
	switch req.Action {
	case ActionAssignStoryManager:
		id, role = req.StoryManagerID, entities.UserRoleStoryManager
	case ActionAssignBookManager:
		id, role = req.BookManagerID, entities.UserRoleBookManager
	default:
		return nil
	}

	user, err := users.NewRepository(db).GetUserByID(*id)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return invalid("Assignee %d not found", *id)
		}
		return fmt.Errorf("failed to load assignee: %w", err)
	}
	if user.Role != role {
		return invalid("Assignee must have role %s", role)
	}
	return nil
}

func (m *Manager) apply(ctx context.Context, p *plan) (*TransitionResult, TransitionEvent, error) {
	req, sub := p.req, p.sub
	now := m.clock.Now()
	correlationID := uuid.NewString()

	result := &TransitionResult{
		SubmissionID:  sub.ID,
		Action:        req.Action,
		FromStatus:    sub.Status,
		ToStatus:      p.to,
		Version:       sub.Version + 1,
		CorrelationID: correlationID,
		Warnings:      p.result.Warnings,
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subs := submissions.NewRepository(tx)
		bookRepo := books.NewRepository(tx)

		updates := map[string]any{
			"status":            p.to,
			"status_changed_at": now,
		}

		switch req.Action {
		case ActionSubmit, ActionResubmit:
			updates["submitted_at"] = now
		case ActionAssignStoryManager:
			updates["story_manager_id"] = *req.StoryManagerID
			sub.StoryManagerID = req.StoryManagerID
		case ActionAssignBookManager:
			updates["book_manager_id"] = *req.BookManagerID
			sub.BookManagerID = req.BookManagerID
		case ActionFormatDecision:
			updates["format_decision"] = req.FormatDecision
		case ActionRequestRevision, ActionReject:
			updates["revision_reason"] = p.reason
		}

		if a := req.Artifacts; a != nil {
			if a.PDFPath != "" {
				updates["pdf_path"] = a.PDFPath
				sub.PDFPath = a.PDFPath
			}
			if a.PageCount != 0 {
				updates["page_count"] = a.PageCount
				sub.PageCount = a.PageCount
			}
			if a.Checksum != "" {
				updates["checksum"] = a.Checksum
				sub.Checksum = a.Checksum
			}
		}

		if p.reason != "" {
			updates["last_review_comment"] = p.reason
		}
		if req.Action != ActionSubmit && req.Action != ActionResubmit && req.ActorRole.IsReviewer() {
			updates["reviewed_at"] = now
		}

		if p.to == entities.StatusPublished {
			bookID, err := publishBook(bookRepo, sub, now)
			if err != nil {
				return fmt.Errorf("failed to publish book: %w", err)
			}
			updates["published_at"] = now
			updates["published_book_id"] = bookID
			result.BookID = &bookID
		}
		if sub.Status == entities.StatusPublished && p.to != entities.StatusPublished {
			if _, err := bookRepo.SetPublishedBySubmission(sub.ID, false); err != nil {
				return fmt.Errorf("failed to unpublish book: %w", err)
			}
			updates["published_at"] = nil
		}

		if err := subs.UpdateIfVersion(sub.ID, sub.Version, updates); err != nil {
			return err
		}

		if req.Action == ActionSubmit || req.Action == ActionResubmit {
			if err := subs.CreateRevision(&entities.Revision{
				SubmissionID: sub.ID,
				Title:        sub.Title,
				Content:      sub.Content,
				CreatedByID:  req.ActorID,
				CreatedAt:    now,
			}); err != nil {
				return fmt.Errorf("failed to snapshot revision: %w", err)
			}
		}

		if p.template != nil {
			if err := templates.NewRepository(tx).IncrementUsage(p.template.ID); err != nil {
				return fmt.Errorf("failed to update template usage: %w", err)
			}
		}

		metadata := transitionMetadata(req, correlationID)
		transition := &entities.WorkflowTransition{
			SubmissionID: sub.ID,
			FromStatus:   sub.Status,
			ToStatus:     p.to,
			Action:       string(req.Action),
			ActorID:      req.ActorID,
			ActorRole:    req.ActorRole,
			Reason:       p.reason,
			TemplateID:   req.TemplateID,
			Metadata:     metadata,
			CreatedAt:    now,
		}
		if err := subs.CreateTransition(transition); err != nil {
			return fmt.Errorf("failed to record transition: %w", err)
		}
		result.TransitionID = transition.ID

		event := &entities.AuditEvent{
			UserID:        req.ActorID,
			EventType:     entities.AuditEventStatusChange,
			Action:        string(req.Action),
			Description:   fmt.Sprintf("Submission %d moved %s -> %s", sub.ID, sub.Status, p.to),
			EntityType:    "submission",
			EntityID:      &sub.ID,
			Metadata:      metadata,
			CorrelationID: correlationID,
			Status:        entities.AuditStatusSuccess,
			CreatedAt:     now,
		}
		audit.Seal(event)
		if err := auditdb.NewRepository(tx).LogEvent(event); err != nil {
			return fmt.Errorf("failed to write audit event: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, submissions.ErrVersionConflict) {
			return nil, TransitionEvent{}, fmt.Errorf("%w: submission %d changed while processing", ErrVersionMismatch, sub.ID)
		}
		return nil, TransitionEvent{}, fmt.Errorf("failed to apply transition: %w", err)
	}

	event := TransitionEvent{
		SubmissionID:   sub.ID,
		Title:          sub.Title,
		AuthorID:       sub.AuthorID,
		AuthorName:     sub.AuthorName,
		FromStatus:     sub.Status,
		ToStatus:       p.to,
		Action:         req.Action,
		ActorID:        req.ActorID,
		ActorRole:      req.ActorRole,
		Reason:         p.reason,
		StoryManagerID: sub.StoryManagerID,
		BookManagerID:  sub.BookManagerID,
		CorrelationID:  correlationID,
	}
	return result, event, nil
}

// publishBook creates the library book for a submission, or re-shows the
// book it produced before when the submission is published again.
func publishBook(repo *books.Repository, sub *entities.Submission, now time.Time) (uint, error) {
	book := &entities.Book{}
	if sub.PublishedBookID != nil {
		existing, err := repo.GetByID(*sub.PublishedBookID)
		if err != nil && !errors.Is(err, books.ErrBookNotFound) {
			return 0, err
		}
		if existing != nil {
			book = existing
		}
	}

	subID := sub.ID
	book.Title = sub.Title
	book.AuthorName = sub.AuthorName
	book.Summary = sub.Summary
	book.Content = sub.Content
	book.Language = sub.Language
	book.Categories = sub.Categories
	book.AgeRange = sub.AgeRange
	book.PDFPath = sub.PDFPath
	book.PageCount = sub.PageCount
	book.AuthorID = sub.AuthorID
	book.SubmissionID = &subID
	book.OriginalBookID = sub.SourceBookID
	book.Published = true
	book.PublishedAt = &now

	if book.ID == 0 {
		if err := repo.Create(book); err != nil {
			return 0, err
		}
	} else if err := repo.Save(book); err != nil {
		return 0, err
	}
	return book.ID, nil
}

func transitionMetadata(req TransitionRequest, correlationID string) string {
	md := map[string]any{"correlation_id": correlationID}
	for k, v := range req.Metadata {
		md[k] = v
	}
	if req.TemplateID != nil {
		md["template_id"] = *req.TemplateID
	}
	if req.FormatDecision != "" {
		md["format_decision"] = req.FormatDecision
	}
	b, err := json.Marshal(md)
	if err != nil {
		return ""
	}
	return string(b)
}

func (m *Manager) notify(ctx context.Context, event TransitionEvent) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyTransition(ctx, event); err != nil {
		log.Printf("[WORKFLOW] Failed to enqueue notification for submission %d: %v", event.SubmissionID, err)
	}
}

// History returns the transition history of a submission.
func (m *Manager) History(ctx context.Context, submissionID uint) ([]entities.WorkflowTransition, error) {
	return submissions.NewRepository(m.db.WithContext(ctx)).ListTransitions(submissionID)
}

type AvailableAction struct {
	Action      Action                    `json:"action"`
	To          entities.PublishingStatus `json:"to"`
	Description string                    `json:"description"`
	Required    []string                  `json:"required_fields,omitempty"`
}

// PossibleActions lists what the actor may do next with the submission.
func (m *Manager) PossibleActions(sub *entities.Submission, actorID uint, role entities.UserRole) []AvailableAction {
	mode := m.resolveMode("")
	ctx := Context{
		ActorID:        actorID,
		ActorRole:      role,
		AuthorID:       sub.AuthorID,
		StoryManagerID: sub.StoryManagerID,
		BookManagerID:  sub.BookManagerID,
	}

	actions := []AvailableAction{}
	for _, r := range ValidTransitions(sub.Status, role, mode) {
		if checkGuard(r.Guard, ctx) != "" {
			continue
		}
		actions = append(actions, AvailableAction{
			Action:      r.Action,
			To:          r.To,
			Description: r.Description,
			Required:    r.RequiredFields,
		})
	}
	return actions
}
