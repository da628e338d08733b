package entities

import (
	"time"

	"gorm.io/gorm"
)

type PublishingStatus string

const (
	StatusDraft         PublishingStatus = "DRAFT"
	StatusPending       PublishingStatus = "PENDING"
	StatusStoryReview   PublishingStatus = "STORY_REVIEW"
	StatusNeedsRevision PublishingStatus = "NEEDS_REVISION"
	StatusStoryApproved PublishingStatus = "STORY_APPROVED"
	StatusFormatReview  PublishingStatus = "FORMAT_REVIEW"
	StatusContentReview PublishingStatus = "CONTENT_REVIEW"
	StatusApproved      PublishingStatus = "APPROVED"
	StatusPublished     PublishingStatus = "PUBLISHED"
	StatusRejected      PublishingStatus = "REJECTED"
	StatusArchived      PublishingStatus = "ARCHIVED"
)

var AllStatuses = []PublishingStatus{
	StatusDraft,
	StatusPending,
	StatusStoryReview,
	StatusNeedsRevision,
	StatusStoryApproved,
	StatusFormatReview,
	StatusContentReview,
	StatusApproved,
	StatusPublished,
	StatusRejected,
	StatusArchived,
}

// ReviewStatuses are the statuses in which a reviewer owes the next action.
var ReviewStatuses = []PublishingStatus{
	StatusPending,
	StatusStoryReview,
	StatusStoryApproved,
	StatusFormatReview,
	StatusContentReview,
	StatusApproved,
}

func (s PublishingStatus) IsValid() bool {
	for _, status := range AllStatuses {
		if status == s {
			return true
		}
	}
	return false
}

func (s PublishingStatus) InReview() bool {
	for _, status := range ReviewStatuses {
		if status == s {
			return true
		}
	}
	return false
}

type SubmissionKind string

const (
	SubmissionKindBook        SubmissionKind = "BOOK"
	SubmissionKindStory       SubmissionKind = "STORY"
	SubmissionKindTranslation SubmissionKind = "TRANSLATION"
)

func (k SubmissionKind) IsValid() bool {
	return k == SubmissionKindBook || k == SubmissionKindStory || k == SubmissionKindTranslation
}

type FormatDecision string

const (
	FormatDecisionText FormatDecision = "TEXT"
	FormatDecisionBook FormatDecision = "BOOK"
)

func (f FormatDecision) IsValid() bool {
	return f == FormatDecisionText || f == FormatDecisionBook
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Submission is a piece of content moving through the publishing pipeline.
type Submission struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	Kind       SubmissionKind   `gorm:"size:20;index" json:"kind"`
	Title      string           `gorm:"size:512" json:"title"`
	AuthorName string           `gorm:"size:256" json:"author_name"`
	Summary    string           `gorm:"type:text" json:"summary,omitempty"`
	Content    string           `gorm:"type:text" json:"content,omitempty"`
	Language   string           `gorm:"size:10;default:'en'" json:"language"`
	Categories []string         `gorm:"serializer:json" json:"categories,omitempty"`
	AgeRange   string           `gorm:"size:20" json:"age_range,omitempty"`
	Status     PublishingStatus `gorm:"size:30;index;default:'DRAFT'" json:"status"`
	Version    int              `gorm:"default:1" json:"version"`
	Priority   Priority         `gorm:"size:10;default:'MEDIUM'" json:"priority"`

	AuthorID       uint           `gorm:"index" json:"author_id"`
	StoryManagerID *uint          `gorm:"index" json:"story_manager_id,omitempty"`
	BookManagerID  *uint          `gorm:"index" json:"book_manager_id,omitempty"`
	FormatDecision FormatDecision `gorm:"size:10" json:"format_decision,omitempty"`

	// Production artifacts required before a book can be published
	PDFPath   string `gorm:"size:1024" json:"pdf_path,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
	Checksum  string `gorm:"size:64" json:"checksum,omitempty"`

	RevisionReason    string `gorm:"type:text" json:"revision_reason,omitempty"`
	LastReviewComment string `gorm:"type:text" json:"last_review_comment,omitempty"`

	// Set for translations
	SourceBookID *uint `gorm:"index" json:"source_book_id,omitempty"`

	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	PublishedBookID *uint      `json:"published_book_id,omitempty"`

	// StatusChangedAt drives SLA checks
	StatusChangedAt time.Time `gorm:"index" json:"status_changed_at"`

	Author    User           `gorm:"foreignKey:AuthorID" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Submission) TableName() string {
	return "submissions"
}

// WorkflowTransition is an immutable history row written for every status change.
type WorkflowTransition struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	SubmissionID uint             `gorm:"index" json:"submission_id"`
	FromStatus   PublishingStatus `gorm:"size:30" json:"from_status"`
	ToStatus     PublishingStatus `gorm:"size:30" json:"to_status"`
	Action       string           `gorm:"size:40" json:"action"`
	ActorID      uint             `gorm:"index" json:"actor_id"`
	ActorRole    UserRole         `gorm:"size:30" json:"actor_role"`
	Reason       string           `gorm:"type:text" json:"reason,omitempty"`
	TemplateID   *uint            `json:"template_id,omitempty"`
	Metadata     string           `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt    time.Time        `gorm:"index" json:"created_at"`
}

func (WorkflowTransition) TableName() string {
	return "workflow_transitions"
}

// Revision is a content snapshot taken each time a submission enters review.
type Revision struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"uniqueIndex:idx_submission_revision" json:"submission_id"`
	Number       int       `gorm:"uniqueIndex:idx_submission_revision" json:"number"`
	Title        string    `gorm:"size:512" json:"title"`
	Content      string    `gorm:"type:text" json:"content"`
	CreatedByID  uint      `json:"created_by_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Revision) TableName() string {
	return "revisions"
}
