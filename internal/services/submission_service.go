package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/juju/clock"
	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/database/books"
	"github.com/stories1001/publisher/internal/database/submissions"
	"github.com/stories1001/publisher/internal/entities"
	"github.com/stories1001/publisher/internal/revisions"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrRevisionNotFound   = errors.New("revision not found")
	ErrForbidden          = errors.New("forbidden")
	ErrNotEditable        = errors.New("submission can only be changed in DRAFT or NEEDS_REVISION")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("submission was changed by someone else")
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   uint
	Role entities.UserRole
}

type SubmissionInput struct {
	Kind         entities.SubmissionKind `json:"kind"`
	Title        string                  `json:"title"`
	AuthorName   string                  `json:"author_name"`
	Summary      string                  `json:"summary"`
	Content      string                  `json:"content"`
	Language     string                  `json:"language"`
	Categories   []string                `json:"categories"`
	AgeRange     string                  `json:"age_range"`
	Priority     entities.Priority       `json:"priority"`
	SourceBookID *uint                   `json:"source_book_id"`
}

type SubmissionListOptions struct {
	Statuses []entities.PublishingStatus
	Kind     entities.SubmissionKind
	Page     int
	PageSize int
}

// SubmissionService implements author and reviewer access to submissions.
// Status changes go through the workflow manager, not this service.
type SubmissionService struct {
	subs  *submissions.Repository
	books *books.Repository
	clock clock.Clock
}

func NewSubmissionService(db *gorm.DB, clk clock.Clock) *SubmissionService {
	if clk == nil {
		clk = clock.WallClock
	}
	return &SubmissionService{
		subs:  submissions.NewRepository(db),
		books: books.NewRepository(db),
		clock: clk,
	}
}

// Create stores a new draft owned by the actor.
func (s *SubmissionService) Create(actor Actor, in SubmissionInput) (*entities.Submission, error) {
	if !actor.Role.CanAuthor() {
		return nil, fmt.Errorf("%w: role %s cannot author submissions", ErrForbidden, actor.Role)
	}
	if in.Kind == "" {
		in.Kind = entities.SubmissionKindStory
	}
	if !in.Kind.IsValid() {
		return nil, fmt.Errorf("%w: kind must be BOOK, STORY or TRANSLATION", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Language == "" {
		in.Language = "en"
	}
	if in.Priority == "" {
		in.Priority = entities.PriorityMedium
	}
	if err := s.checkTranslation(in); err != nil {
		return nil, err
	}

	sub := &entities.Submission{
		Kind:            in.Kind,
		Title:           strings.TrimSpace(in.Title),
		AuthorName:      in.AuthorName,
		Summary:         in.Summary,
		Content:         in.Content,
		Language:        in.Language,
		Categories:      in.Categories,
		AgeRange:        in.AgeRange,
		Priority:        in.Priority,
		SourceBookID:    in.SourceBookID,
		Status:          entities.StatusDraft,
		Version:         1,
		AuthorID:        actor.ID,
		StatusChangedAt: s.clock.Now(),
	}
	if err := s.subs.Create(sub); err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	log.Printf("[SUBMISSION] User %d created %s draft %d", actor.ID, sub.Kind, sub.ID)
	return sub, nil
}

func (s *SubmissionService) checkTranslation(in SubmissionInput) error {
	if in.Kind != entities.SubmissionKindTranslation {
		if in.SourceBookID != nil {
			return fmt.Errorf("%w: only translations reference a source book", ErrInvalidInput)
		}
		return nil
	}
	if in.SourceBookID == nil {
		return fmt.Errorf("%w: a translation needs source_book_id", ErrInvalidInput)
	}
	source, err := s.books.GetPublishedByID(*in.SourceBookID)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			return fmt.Errorf("%w: source book %d is not published", ErrInvalidInput, *in.SourceBookID)
		}
		return fmt.Errorf("failed to load source book: %w", err)
	}
	if strings.EqualFold(source.Language, in.Language) {
		return fmt.Errorf("%w: translation language must differ from the source (%s)", ErrInvalidInput, source.Language)
	}
	return nil
}

// Update changes the content of a submission the actor owns while it is
// still editable.
func (s *SubmissionService) Update(actor Actor, id uint, in SubmissionInput) (*entities.Submission, error) {
	sub, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if sub.AuthorID != actor.ID {
		return nil, fmt.Errorf("%w: only the author can edit this submission", ErrForbidden)
	}
	if sub.Status != entities.StatusDraft && sub.Status != entities.StatusNeedsRevision {
		return nil, ErrNotEditable
	}

	if t := strings.TrimSpace(in.Title); t != "" {
		sub.Title = t
	}
	if in.AuthorName != "" {
		sub.AuthorName = in.AuthorName
	}
	if in.Summary != "" {
		sub.Summary = in.Summary
	}
	if in.Content != "" {
		sub.Content = in.Content
	}
	if in.Language != "" {
		sub.Language = in.Language
	}
	if in.Categories != nil {
		sub.Categories = in.Categories
	}
	if in.AgeRange != "" {
		sub.AgeRange = in.AgeRange
	}
	if in.Priority != "" {
		sub.Priority = in.Priority
	}

	if sub.Kind == entities.SubmissionKindTranslation {
		if err := s.checkTranslation(SubmissionInput{
			Kind: sub.Kind, Language: sub.Language, SourceBookID: sub.SourceBookID,
		}); err != nil {
			return nil, err
		}
	}

	if err := s.subs.UpdateContent(sub, sub.Version); err != nil {
		if errors.Is(err, submissions.ErrVersionConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}
	return sub, nil
}

// Delete removes a draft. Admins and content admins can delete any submission.
func (s *SubmissionService) Delete(actor Actor, id uint) error {
	sub, err := s.load(id)
	if err != nil {
		return err
	}
	if !actor.Role.IsPrivileged() {
		if sub.AuthorID != actor.ID {
			return fmt.Errorf("%w: only the author can delete this submission", ErrForbidden)
		}
		if sub.Status != entities.StatusDraft {
			return fmt.Errorf("%w: only drafts can be deleted", ErrNotEditable)
		}
	}
	if err := s.subs.Delete(id); err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	log.Printf("[SUBMISSION] User %d deleted submission %d", actor.ID, id)
	return nil
}

// ListOwn returns the actor's own submissions.
func (s *SubmissionService) ListOwn(actor Actor, opts SubmissionListOptions) ([]entities.Submission, int64, error) {
	return s.subs.List(submissions.Filter{
		AuthorID: actor.ID,
		Statuses: opts.Statuses,
		Kind:     opts.Kind,
		Page:     opts.Page,
		PageSize: opts.PageSize,
	})
}

// queueScope returns the statuses a reviewer role works on. nil means all.
func queueScope(role entities.UserRole) ([]entities.PublishingStatus, bool) {
	switch role {
	case entities.UserRoleStoryManager:
		return []entities.PublishingStatus{entities.StatusPending, entities.StatusStoryReview}, true
	case entities.UserRoleBookManager:
		return []entities.PublishingStatus{entities.StatusStoryApproved, entities.StatusFormatReview}, true
	case entities.UserRoleCoordinator:
		return entities.ReviewStatuses, true
	case entities.UserRoleContentAdmin, entities.UserRoleAdmin:
		return nil, true
	}
	return nil, false
}

// Queue returns the review queue visible to the actor's role.
func (s *SubmissionService) Queue(actor Actor, opts SubmissionListOptions) ([]entities.Submission, int64, error) {
	scope, ok := queueScope(actor.Role)
	if !ok {
		return nil, 0, fmt.Errorf("%w: role %s has no review queue", ErrForbidden, actor.Role)
	}

	statuses := opts.Statuses
	if scope != nil {
		statuses = intersect(scope, opts.Statuses)
		if len(statuses) == 0 {
			return []entities.Submission{}, 0, nil
		}
	}

	filter := submissions.Filter{
		Statuses: statuses,
		Kind:     opts.Kind,
		Page:     opts.Page,
		PageSize: opts.PageSize,
	}
	switch actor.Role {
	case entities.UserRoleStoryManager:
		filter.StoryManagerID = actor.ID
	case entities.UserRoleBookManager:
		filter.BookManagerID = actor.ID
	}
	return s.subs.List(filter)
}

// intersect returns scope narrowed by requested. An empty request keeps the scope.
func intersect(scope, requested []entities.PublishingStatus) []entities.PublishingStatus {
	if len(requested) == 0 {
		return scope
	}
	var out []entities.PublishingStatus
	for _, r := range requested {
		for _, s := range scope {
			if r == s {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Get returns a submission the actor is allowed to see.
func (s *SubmissionService) Get(actor Actor, id uint) (*entities.Submission, error) {
	sub, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, sub) {
		return nil, fmt.Errorf("%w: no access to submission %d", ErrForbidden, id)
	}
	return sub, nil
}

// CanView applies the same scoping as the review queues, plus authorship
// and standing assignments.
func CanView(actor Actor, sub *entities.Submission) bool {
	if sub.AuthorID == actor.ID || actor.Role.IsPrivileged() {
		return true
	}
	if sub.StoryManagerID != nil && *sub.StoryManagerID == actor.ID {
		return true
	}
	if sub.BookManagerID != nil && *sub.BookManagerID == actor.ID {
		return true
	}

	scope, ok := queueScope(actor.Role)
	if !ok {
		return false
	}
	inScope := false
	for _, st := range scope {
		if st == sub.Status {
			inScope = true
			break
		}
	}
	if !inScope {
		return false
	}

	switch actor.Role {
	case entities.UserRoleStoryManager:
		return sub.StoryManagerID == nil
	case entities.UserRoleBookManager:
		return sub.BookManagerID == nil
	}
	return true
}

func (s *SubmissionService) Revisions(actor Actor, id uint) ([]entities.Revision, error) {
	if _, err := s.Get(actor, id); err != nil {
		return nil, err
	}
	return s.subs.ListRevisions(id)
}

// DiffRevisions compares two revision numbers of a submission.
func (s *SubmissionService) DiffRevisions(actor Actor, id uint, from, to int) (*revisions.Diff, error) {
	if _, err := s.Get(actor, id); err != nil {
		return nil, err
	}

	a, err := s.subs.GetRevision(id, from)
	if err != nil {
		return nil, s.revisionErr(err, from)
	}
	b, err := s.subs.GetRevision(id, to)
	if err != nil {
		return nil, s.revisionErr(err, to)
	}
	return revisions.Compare(a, b), nil
}

func (s *SubmissionService) revisionErr(err error, number int) error {
	if errors.Is(err, submissions.ErrRevisionNotFound) {
		return fmt.Errorf("%w: revision %d", ErrRevisionNotFound, number)
	}
	return err
}

func (s *SubmissionService) load(id uint) (*entities.Submission, error) {
	sub, err := s.subs.GetByID(id)
	if err != nil {
		if errors.Is(err, submissions.ErrSubmissionNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}
	return sub, nil
}
