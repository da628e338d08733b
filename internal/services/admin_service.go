package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/juju/clock"
	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/audit"
	"github.com/stories1001/publisher/internal/database/books"
	"github.com/stories1001/publisher/internal/database/submissions"
	"github.com/stories1001/publisher/internal/database/users"
	"github.com/stories1001/publisher/internal/entities"
	"github.com/stories1001/publisher/internal/workflow"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrMigrationNotFound = errors.New("role migration not found")
	ErrLastAdmin         = errors.New("cannot remove the last admin")
)

type BulkAction string

const (
	BulkCategorize BulkAction = "categorize"
	BulkLanguage   BulkAction = "language"
	BulkPremium    BulkAction = "premium"
	BulkPublish    BulkAction = "publish"
	BulkDelete     BulkAction = "delete"
)

// MaxBulkBooks caps the number of books one bulk action may touch.
const MaxBulkBooks = 500

type BulkPayload struct {
	Categories []string `json:"categories,omitempty"`
	Language   string   `json:"language,omitempty"`
	Premium    *bool    `json:"premium,omitempty"`
	Published  *bool    `json:"published,omitempty"`
}

type BulkActionResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	AffectedCount int64  `json:"affectedCount"`
}

type Stats struct {
	ByStatus         map[entities.PublishingStatus]int64 `json:"by_status"`
	ByKind           map[entities.SubmissionKind]int64   `json:"by_kind"`
	PendingReviews   int64                               `json:"pending_reviews"`
	OverdueReviews   int                                 `json:"overdue_reviews"`
	OverdueRevisions int                                 `json:"overdue_revisions"`
	PublishedBooks   int64                               `json:"published_books"`
}

// AdminService implements library maintenance, role management and statistics.
type AdminService struct {
	db            *gorm.DB
	books         *books.Repository
	users         *users.Repository
	subs          *submissions.Repository
	workflow      *workflow.Manager
	notifications *NotificationService
	audit         *audit.Service
	clock         clock.Clock
}

func NewAdminService(db *gorm.DB, manager *workflow.Manager, notifications *NotificationService, auditService *audit.Service, clk clock.Clock) *AdminService {
	if clk == nil {
		clk = clock.WallClock
	}
	return &AdminService{
		db:            db,
		books:         books.NewRepository(db),
		users:         users.NewRepository(db),
		subs:          submissions.NewRepository(db),
		workflow:      manager,
		notifications: notifications,
		audit:         auditService,
		clock:         clk,
	}
}

// BulkLibraryAction applies one action to many library books.
func (s *AdminService) BulkLibraryAction(actor Actor, action BulkAction, bookIDs []uint, payload BulkPayload) (*BulkActionResult, error) {
	if actor.Role != entities.UserRoleAdmin {
		return nil, fmt.Errorf("%w: bulk actions require ADMIN", ErrForbidden)
	}
	if len(bookIDs) == 0 {
		return nil, fmt.Errorf("%w: no books selected", ErrInvalidInput)
	}
	if len(bookIDs) > MaxBulkBooks {
		return nil, fmt.Errorf("%w: at most %d books per action", ErrInvalidInput, MaxBulkBooks)
	}

	var (
		affected int64
		err      error
		message  string
	)

	switch action {
	case BulkCategorize:
		if len(payload.Categories) == 0 {
			return nil, fmt.Errorf("%w: categorize needs categories", ErrInvalidInput)
		}
		affected, err = s.books.UpdateCategories(bookIDs, payload.Categories)
		message = fmt.Sprintf("Updated categories to %s", strings.Join(payload.Categories, ", "))
	case BulkLanguage:
		if strings.TrimSpace(payload.Language) == "" {
			return nil, fmt.Errorf("%w: language needs a language code", ErrInvalidInput)
		}
		affected, err = s.books.UpdateLanguage(bookIDs, payload.Language)
		message = fmt.Sprintf("Updated language to %s", payload.Language)
	case BulkPremium:
		if payload.Premium == nil {
			return nil, fmt.Errorf("%w: premium needs a premium flag", ErrInvalidInput)
		}
		affected, err = s.books.SetPremium(bookIDs, *payload.Premium)
		message = fmt.Sprintf("Set premium to %t", *payload.Premium)
	case BulkPublish:
		if payload.Published == nil {
			return nil, fmt.Errorf("%w: publish needs a published flag", ErrInvalidInput)
		}
		affected, err = s.books.SetPublished(bookIDs, *payload.Published)
		message = fmt.Sprintf("Set published to %t", *payload.Published)
	case BulkDelete:
		affected, err = s.books.Delete(bookIDs)
		message = "Deleted books"
	default:
		return nil, fmt.Errorf("%w: unknown action %s", ErrInvalidInput, action)
	}

	result := &BulkActionResult{Success: err == nil, AffectedCount: affected}
	if err == nil {
		result.Message = fmt.Sprintf("%s on %d books", message, affected)
	} else {
		result.Message = "Bulk action failed"
	}

	if s.audit != nil {
		s.audit.LogBulkOperation(actor.ID, "bulk_"+string(action),
			fmt.Sprintf("%s (%d requested)", message, len(bookIDs)),
			map[string]any{"book_ids": bookIDs, "payload": payload, "affected": affected}, err)
	}

	if err != nil {
		return result, fmt.Errorf("bulk %s failed: %w", action, err)
	}
	log.Printf("[ADMIN] User %d ran bulk %s: %d books affected", actor.ID, action, affected)
	return result, nil
}

// canGrant reports whether the actor may move a user between from and to.
func canGrant(actor entities.UserRole, from, to entities.UserRole) bool {
	switch actor {
	case entities.UserRoleAdmin:
		return true
	case entities.UserRoleContentAdmin:
		return !from.IsPrivileged() && !to.IsPrivileged()
	}
	return false
}

// MigrateRole changes a user's role and records the change.
func (s *AdminService) MigrateRole(actor Actor, userID uint, toRole entities.UserRole, reason string) (*entities.RoleMigration, error) {
	if !toRole.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %s", ErrInvalidInput, toRole)
	}
	user, err := s.loadUser(userID)
	if err != nil {
		return nil, err
	}
	if user.Role == toRole {
		return nil, fmt.Errorf("%w: user already has role %s", ErrInvalidInput, toRole)
	}
	if !canGrant(actor.Role, user.Role, toRole) {
		return nil, fmt.Errorf("%w: %s cannot change %s to %s", ErrForbidden, actor.Role, user.Role, toRole)
	}

	m := &entities.RoleMigration{
		UserID:        userID,
		FromRole:      user.Role,
		ToRole:        toRole,
		Status:        entities.RoleMigrationPending,
		Reason:        reason,
		PerformedByID: actor.ID,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.users.CreateMigration(m); err != nil {
		return nil, fmt.Errorf("failed to record migration: %w", err)
	}

	err = s.applyRole(m, user.Role, toRole, entities.RoleMigrationCompleted)
	s.finishMigration(actor, m, err)
	if err != nil {
		return m, err
	}
	return m, nil
}

// RollbackRole restores the role a completed migration replaced.
func (s *AdminService) RollbackRole(actor Actor, migrationID uint) (*entities.RoleMigration, error) {
	m, err := s.users.GetMigration(migrationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMigrationNotFound
		}
		return nil, err
	}
	if m.Status != entities.RoleMigrationCompleted {
		return nil, fmt.Errorf("%w: only completed migrations can be rolled back", ErrInvalidInput)
	}

	user, err := s.loadUser(m.UserID)
	if err != nil {
		return nil, err
	}
	if user.Role != m.ToRole {
		return nil, fmt.Errorf("%w: user role changed since this migration", ErrInvalidInput)
	}
	if !canGrant(actor.Role, m.ToRole, m.FromRole) {
		return nil, fmt.Errorf("%w: %s cannot change %s to %s", ErrForbidden, actor.Role, m.ToRole, m.FromRole)
	}

	err = s.applyRole(m, m.ToRole, m.FromRole, entities.RoleMigrationRolledBack)
	if err != nil {
		// the original migration stays COMPLETED
		if s.audit != nil {
			s.audit.LogRoleMigration(actor.ID, m, err)
		}
		return nil, err
	}
	s.finishMigration(actor, m, nil)
	return m, nil
}

// applyRole moves the user from one role to another in a transaction and
// marks the migration with status on success.
func (s *AdminService) applyRole(m *entities.RoleMigration, from, to entities.UserRole, status entities.RoleMigrationStatus) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		repo := users.NewRepository(tx)

		if from == entities.UserRoleAdmin && to != entities.UserRoleAdmin {
			admins, err := repo.CountByRole(entities.UserRoleAdmin)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		if err := repo.UpdateRole(m.UserID, to); err != nil {
			return err
		}

		now := s.clock.Now()
		m.Status = status
		m.CompletedAt = &now
		return repo.SaveMigration(m)
	})
}

func (s *AdminService) finishMigration(actor Actor, m *entities.RoleMigration, err error) {
	if err != nil {
		m.Status = entities.RoleMigrationFailed
		m.ErrorMsg = err.Error()
		if saveErr := s.users.SaveMigration(m); saveErr != nil {
			log.Printf("[ADMIN] Failed to mark migration %d failed: %v", m.ID, saveErr)
		}
	} else if s.notifications != nil {
		from, to := m.FromRole, m.ToRole
		if m.Status == entities.RoleMigrationRolledBack {
			from, to = to, from
		}
		if nerr := s.notifications.NotifyRoleChanged(m.UserID, from, to); nerr != nil {
			log.Printf("[ADMIN] Failed to notify user %d of role change: %v", m.UserID, nerr)
		}
	}

	if s.audit != nil {
		s.audit.LogRoleMigration(actor.ID, m, err)
	}
	log.Printf("[ADMIN] Role migration %d for user %d: %s -> %s (%s)", m.ID, m.UserID, m.FromRole, m.ToRole, m.Status)
}

func (s *AdminService) ListMigrations(userID uint, limit int) ([]entities.RoleMigration, error) {
	return s.users.ListMigrations(userID, limit)
}

func (s *AdminService) ListUsers(role entities.UserRole) ([]entities.User, error) {
	if role != "" && !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %s", ErrInvalidInput, role)
	}
	return s.users.ListUsers(role)
}

// Stats summarizes the pipeline for the admin dashboard.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	byStatus, err := s.subs.CountByStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	byKind, err := s.subs.CountByKind()
	if err != nil {
		return nil, fmt.Errorf("failed to count by kind: %w", err)
	}
	published, err := s.books.CountPublished()
	if err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	stats := &Stats{ByStatus: byStatus, ByKind: byKind, PublishedBooks: published}
	for _, st := range entities.ReviewStatuses {
		stats.PendingReviews += byStatus[st]
	}

	if s.workflow != nil {
		overdue, err := s.workflow.Overdue(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range overdue {
			if item.Kind == workflow.OverdueRevision {
				stats.OverdueRevisions++
			} else {
				stats.OverdueReviews++
			}
		}
	}
	return stats, nil
}

func (s *AdminService) loadUser(id uint) (*entities.User, error) {
	user, err := s.users.GetUserByID(id)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
