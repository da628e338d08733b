// Package users provides database operations for users and role migrations.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	reviewers, err := repo.ListByRoles([]entities.UserRole{entities.UserRoleStoryManager})
package users

import (
	"errors"

	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/entities"
)

var ErrUserNotFound = errors.New("user not found")

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns users ordered by username, optionally filtered by role.
func (r *Repository) ListUsers(role entities.UserRole) ([]entities.User, error) {
	var users []entities.User
	query := r.db.Order("username ASC")
	if role != "" {
		query = query.Where("role = ?", role)
	}
	err := query.Find(&users).Error
	return users, err
}

// ListByRoles returns every user holding one of the given roles.
func (r *Repository) ListByRoles(roles []entities.UserRole) ([]entities.User, error) {
	var users []entities.User
	if len(roles) == 0 {
		return users, nil
	}
	err := r.db.Where("role IN ?", roles).Order("id ASC").Find(&users).Error
	return users, err
}

// CountByRole returns the number of users with the given role.
func (r *Repository) CountByRole(role entities.UserRole) (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

// UpdateRole sets a user's role.
func (r *Repository) UpdateRole(userID uint, role entities.UserRole) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", userID).Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CreateMigration stores a role migration record.
func (r *Repository) CreateMigration(m *entities.RoleMigration) error {
	return r.db.Create(m).Error
}

// SaveMigration updates an existing role migration record.
func (r *Repository) SaveMigration(m *entities.RoleMigration) error {
	return r.db.Save(m).Error
}

// GetMigration retrieves a role migration by ID.
func (r *Repository) GetMigration(id uint) (*entities.RoleMigration, error) {
	var m entities.RoleMigration
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMigrations returns role migrations newest first, optionally for a single user.
func (r *Repository) ListMigrations(userID uint, limit int) ([]entities.RoleMigration, error) {
	var migrations []entities.RoleMigration
	if limit <= 0 {
		limit = 50
	}
	query := r.db.Order("created_at DESC, id DESC").Limit(limit)
	if userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	err := query.Find(&migrations).Error
	return migrations, err
}
