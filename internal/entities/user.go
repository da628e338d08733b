package entities

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleLearner     UserRole = "LEARNER"
	UserRoleTeacher     UserRole = "TEACHER"
	UserRoleVolunteer   UserRole = "VOLUNTEER"
	UserRoleWriter      UserRole = "WRITER"
	UserRoleInstitution UserRole = "INSTITUTION"

	UserRoleStoryManager UserRole = "STORY_MANAGER"
	UserRoleBookManager  UserRole = "BOOK_MANAGER"
	UserRoleContentAdmin UserRole = "CONTENT_ADMIN"
	UserRoleCoordinator  UserRole = "COORDINATOR"
	UserRoleAdmin        UserRole = "ADMIN"
)

// AllRoles lists every role the platform knows about, reader roles first.
var AllRoles = []UserRole{
	UserRoleLearner,
	UserRoleTeacher,
	UserRoleVolunteer,
	UserRoleWriter,
	UserRoleInstitution,
	UserRoleStoryManager,
	UserRoleBookManager,
	UserRoleContentAdmin,
	UserRoleCoordinator,
	UserRoleAdmin,
}

// ReviewerRoles can act on submissions somewhere in the review pipeline.
var ReviewerRoles = []UserRole{
	UserRoleStoryManager,
	UserRoleBookManager,
	UserRoleContentAdmin,
	UserRoleCoordinator,
	UserRoleAdmin,
}

// AuthorRoles can create and submit content.
var AuthorRoles = []UserRole{
	UserRoleLearner,
	UserRoleTeacher,
	UserRoleVolunteer,
	UserRoleWriter,
}

func (r UserRole) IsValid() bool {
	return containsRole(AllRoles, r)
}

func (r UserRole) IsReviewer() bool {
	return containsRole(ReviewerRoles, r)
}

func (r UserRole) CanAuthor() bool {
	return containsRole(AuthorRoles, r)
}

// IsPrivileged reports whether the role sees every submission regardless of assignment.
func (r UserRole) IsPrivileged() bool {
	return r == UserRoleAdmin || r == UserRoleContentAdmin
}

func containsRole(roles []UserRole, r UserRole) bool {
	for _, role := range roles {
		if role == r {
			return true
		}
	}
	return false
}

type User struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	Username     string   `gorm:"uniqueIndex;size:100" json:"username"`
	Email        string   `gorm:"uniqueIndex;size:255" json:"email"`
	DisplayName  string   `gorm:"size:255" json:"display_name,omitempty"`
	PasswordHash string   `gorm:"size:255" json:"-"`
	Role         UserRole `gorm:"size:30;index;default:'LEARNER'" json:"role"`

	// API token, only the SHA-256 hash is stored
	TokenHash      string     `gorm:"index;size:64" json:"-"`
	TokenCreatedAt *time.Time `json:"-"`

	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

type RoleMigrationStatus string

const (
	RoleMigrationPending    RoleMigrationStatus = "PENDING"
	RoleMigrationCompleted  RoleMigrationStatus = "COMPLETED"
	RoleMigrationFailed     RoleMigrationStatus = "FAILED"
	RoleMigrationRolledBack RoleMigrationStatus = "ROLLED_BACK"
)

// RoleMigration records every role change so it can be audited and rolled back.
type RoleMigration struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	UserID        uint                `gorm:"index" json:"user_id"`
	FromRole      UserRole            `gorm:"size:30" json:"from_role"`
	ToRole        UserRole            `gorm:"size:30" json:"to_role"`
	Status        RoleMigrationStatus `gorm:"size:20;index" json:"status"`
	Reason        string              `gorm:"size:500" json:"reason,omitempty"`
	ErrorMsg      string              `gorm:"size:500" json:"error_msg,omitempty"`
	PerformedByID uint                `gorm:"index" json:"performed_by_id"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	User          User                `gorm:"foreignKey:UserID" json:"-"`
}

func (RoleMigration) TableName() string {
	return "role_migrations"
}
