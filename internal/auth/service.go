package auth

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entities"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrAuthRequired     = errors.New("authentication required")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
	ErrEmailInvalid     = errors.New("invalid email format")
)

// NewUser holds the fields needed to register an account.
type NewUser struct {
	Username    string
	Email       string
	DisplayName string
	Password    string
	Role        entities.UserRole
}

// Service handles authentication and account management.
type Service struct {
	db     *gorm.DB
	config config.Auth
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateUser creates a new user with password authentication.
func (s *Service) CreateUser(in NewUser) (*entities.User, error) {
	if in.Username == "" {
		return nil, ErrUsernameRequired
	}
	if in.Email == "" {
		return nil, ErrEmailRequired
	}
	if in.Password == "" {
		return nil, ErrPasswordRequired
	}
	if !usernamePattern.MatchString(in.Username) {
		return nil, ErrUsernameInvalid
	}
	// RFC 5321 caps addresses at 254 characters
	if len(in.Email) > 254 || !emailPattern.MatchString(in.Email) {
		return nil, ErrEmailInvalid
	}
	if !in.Role.IsValid() {
		return nil, ErrInvalidRole
	}
	if err := ValidatePassword(in.Password, in.Username, in.Role); err != nil {
		return nil, err
	}

	var existing entities.User
	err := s.db.Where("username = ? OR email = ?", in.Username, in.Email).First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     in.Username,
		Email:        in.Email,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		PasswordHash: passwordHash,
		Role:         in.Role,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate validates credentials and returns the user.
// Accounts are locked after MaxLoginAttempts consecutive failures.
func (s *Service) Authenticate(username, password string) (*entities.User, error) {
	var user entities.User
	err := s.db.Where("username = ? OR email = ?", username, username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(&user)
		return nil, err
	}

	now := time.Now()
	updates := map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	}
	// Upgrade hashes made under an older AUTH_BCRYPT_COST
	if NeedsRehash(user.PasswordHash, s.config.BcryptCost) {
		if hash, err := HashPassword(password, s.config.BcryptCost); err == nil {
			updates["password_hash"] = hash
			user.PasswordHash = hash
			log.Printf("[AUTH] Rehashed password for user %d", user.ID)
		}
	}
	s.db.Model(&user).Updates(updates)
	user.LastLoginAt = &now

	return &user, nil
}

func (s *Service) recordFailedLogin(user *entities.User) {
	user.FailedLoginCount++

	updates := map[string]any{
		"failed_login_count": user.FailedLoginCount,
	}

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if user.FailedLoginCount >= maxAttempts {
		lockoutDuration := s.config.LockoutDuration
		if lockoutDuration == 0 {
			lockoutDuration = 30 * time.Minute
		}
		updates["locked_until"] = time.Now().Add(lockoutDuration)
	}

	s.db.Model(user).Updates(updates)
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := s.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByTokenHash retrieves a user by their hashed API token.
func (s *Service) GetUserByTokenHash(tokenHash string) (*entities.User, error) {
	var user entities.User
	err := s.db.Where("token_hash = ?", tokenHash).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &user, nil
}

// ResolveDebugUser finds the acting user when authentication is disabled.
// ident is a user id or username; empty picks the first admin.
func (s *Service) ResolveDebugUser(ident string) (*entities.User, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		var user entities.User
		err := s.db.Where("role = ?", entities.UserRoleAdmin).Order("id ASC").First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return &user, err
	}

	if id, err := strconv.ParseUint(ident, 10, 64); err == nil {
		return s.GetUserByID(uint(id))
	}

	var user entities.User
	err := s.db.Where("username = ?", ident).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ValidateToken checks a plaintext token and returns the associated user.
// Returns ErrTokenExpired if the token is past its expiry time.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	if !strings.HasPrefix(token, APITokenPrefix) {
		return nil, ErrInvalidToken
	}
	user, err := s.GetUserByTokenHash(HashToken(token))
	if err != nil {
		return nil, err
	}

	if s.config.TokenExpiry > 0 && user.TokenCreatedAt != nil {
		if time.Since(*user.TokenCreatedAt) > s.config.TokenExpiry {
			return nil, ErrTokenExpired
		}
	}

	return user, nil
}

// GenerateToken creates a new API token for a user.
// Only the hash is stored; the plaintext is returned once.
func (s *Service) GenerateToken(userID uint) (string, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	result := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"token_hash":       hash,
		"token_created_at": now,
	})
	if result.Error != nil {
		return "", fmt.Errorf("failed to save token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", ErrUserNotFound
	}

	return plaintext, nil
}

// RevokeToken removes a user's API token.
func (s *Service) RevokeToken(userID uint) error {
	result := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"token_hash":       "",
		"token_created_at": nil,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to revoke token: %w", result.Error)
	}
	return nil
}

// ChangePassword updates a user's password after checking the old one.
func (s *Service) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return err
	}
	if err := ValidatePassword(newPassword, user.Username, user.Role); err != nil {
		return err
	}

	newHash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}

	return s.db.Model(user).Update("password_hash", newHash).Error
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers() (bool, error) {
	var count int64
	if err := s.db.Model(&entities.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsAuthEnabled returns true if authentication is required.
func (s *Service) IsAuthEnabled() bool {
	return s.config.Mode == config.AuthModeLocal
}

// GetAuthMode returns the current authentication mode.
func (s *Service) GetAuthMode() config.AuthMode {
	return s.config.Mode
}
