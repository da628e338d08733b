// Package submissions provides database operations for submissions,
// their transition history and content revisions.
//
// # Usage
//
//	repo := submissions.NewRepository(db)
//	sub, err := repo.GetByID(42)
//	history, err := repo.ListTransitions(42)
package submissions

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/entities"
)

var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrRevisionNotFound   = errors.New("revision not found")
	ErrVersionConflict    = errors.New("submission was modified concurrently")
)

// Filter narrows a submission listing. Zero values match everything.
type Filter struct {
	AuthorID uint
	Statuses []entities.PublishingStatus
	Kind     entities.SubmissionKind

	// StoryManagerID limits results to submissions assigned to this
	// story manager or not yet assigned to anyone.
	StoryManagerID uint
	// BookManagerID limits results to submissions assigned to this
	// book manager or not yet assigned to anyone.
	BookManagerID uint

	Page     int
	PageSize int
}

// Repository handles all submission database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new submissions repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a new submission.
func (r *Repository) Create(sub *entities.Submission) error {
	return r.db.Create(sub).Error
}

// GetByID retrieves a submission by ID.
func (r *Repository) GetByID(id uint) (*entities.Submission, error) {
	var sub entities.Submission
	if err := r.db.First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// Save writes every field of the submission.
func (r *Repository) Save(sub *entities.Submission) error {
	return r.db.Save(sub).Error
}

// UpdateIfVersion applies updates only if the stored version still equals
// expectedVersion, and bumps the version by one.
func (r *Repository) UpdateIfVersion(id uint, expectedVersion int, updates map[string]any) error {
	updates["version"] = gorm.Expr("version + 1")
	result := r.db.Model(&entities.Submission{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// UpdateContent writes the editable content fields of sub if the stored
// version is still expectedVersion, and bumps the version.
func (r *Repository) UpdateContent(sub *entities.Submission, expectedVersion int) error {
	sub.Version = expectedVersion + 1
	result := r.db.Model(sub).
		Where("version = ?", expectedVersion).
		Select("title", "author_name", "summary", "content", "language", "categories", "age_range", "priority", "version").
		Updates(sub)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		sub.Version = expectedVersion
		return ErrVersionConflict
	}
	return nil
}

// Delete soft-deletes a submission.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.Submission{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

// List returns a page of submissions and the total number of matches, most recently changed first.
func (r *Repository) List(filter Filter) ([]entities.Submission, int64, error) {
	query := r.db.Model(&entities.Submission{})
	if filter.AuthorID > 0 {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.StoryManagerID > 0 {
		query = query.Where("story_manager_id = ? OR story_manager_id IS NULL", filter.StoryManagerID)
	}
	if filter.BookManagerID > 0 {
		query = query.Where("book_manager_id = ? OR book_manager_id IS NULL", filter.BookManagerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	var subs []entities.Submission
	err := query.Order("status_changed_at DESC, id DESC").
		Limit(filter.PageSize).
		Offset((filter.Page - 1) * filter.PageSize).
		Find(&subs).Error
	return subs, total, err
}

// ListStale returns submissions in one of statuses whose status has not changed since before.
func (r *Repository) ListStale(statuses []entities.PublishingStatus, before time.Time) ([]entities.Submission, error) {
	var subs []entities.Submission
	err := r.db.Where("status IN ? AND status_changed_at < ?", statuses, before).
		Order("status_changed_at ASC").
		Find(&subs).Error
	return subs, err
}

// CountStale counts submissions in one of statuses whose status has not changed since before.
func (r *Repository) CountStale(statuses []entities.PublishingStatus, before time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Submission{}).
		Where("status IN ? AND status_changed_at < ?", statuses, before).
		Count(&count).Error
	return count, err
}

type groupCount struct {
	Grp   string
	Count int64
}

// CountByStatus returns the number of submissions per status.
func (r *Repository) CountByStatus() (map[entities.PublishingStatus]int64, error) {
	var rows []groupCount
	err := r.db.Model(&entities.Submission{}).
		Select("status AS grp, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[entities.PublishingStatus]int64, len(rows))
	for _, row := range rows {
		counts[entities.PublishingStatus(row.Grp)] = row.Count
	}
	return counts, nil
}

// CountByKind returns the number of submissions per kind.
func (r *Repository) CountByKind() (map[entities.SubmissionKind]int64, error) {
	var rows []groupCount
	err := r.db.Model(&entities.Submission{}).
		Select("kind AS grp, COUNT(*) AS count").
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[entities.SubmissionKind]int64, len(rows))
	for _, row := range rows {
		counts[entities.SubmissionKind(row.Grp)] = row.Count
	}
	return counts, nil
}

// CreateTransition appends a row to the transition history.
func (r *Repository) CreateTransition(t *entities.WorkflowTransition) error {
	return r.db.Create(t).Error
}

// ListTransitions returns the transition history of a submission, oldest first.
func (r *Repository) ListTransitions(submissionID uint) ([]entities.WorkflowTransition, error) {
	var transitions []entities.WorkflowTransition
	err := r.db.Where("submission_id = ?", submissionID).
		Order("created_at ASC, id ASC").
		Find(&transitions).Error
	return transitions, err
}

// CreateRevision stores a content snapshot with the next revision number.
func (r *Repository) CreateRevision(rev *entities.Revision) error {
	var last int
	err := r.db.Model(&entities.Revision{}).
		Where("submission_id = ?", rev.SubmissionID).
		Select("COALESCE(MAX(number), 0)").
		Scan(&last).Error
	if err != nil {
		return err
	}
	rev.Number = last + 1
	return r.db.Create(rev).Error
}

// ListRevisions returns every revision of a submission, oldest first.
func (r *Repository) ListRevisions(submissionID uint) ([]entities.Revision, error) {
	var revisions []entities.Revision
	err := r.db.Where("submission_id = ?", submissionID).Order("number ASC").Find(&revisions).Error
	return revisions, err
}

// GetRevision retrieves one revision by its number.
func (r *Repository) GetRevision(submissionID uint, number int) (*entities.Revision, error) {
	var rev entities.Revision
	err := r.db.Where("submission_id = ? AND number = ?", submissionID, number).First(&rev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRevisionNotFound
		}
		return nil, err
	}
	return &rev, nil
}
