package auth

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/clock"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entities"
)

// setupMutex serializes setup requests so only one first admin is created.
var setupMutex sync.Mutex

// Auditor records authentication events, including login lockouts.
type Auditor interface {
	LockoutAuditor
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
}

// AuthController serves the /api/auth endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
	rateLimiter    *RateLimiter
	auditor        Auditor
}

// NewAuthController creates a new authentication controller. auditor may be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth, auditor Auditor) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
		rateLimiter:    NewRateLimiter(RateLimitConfigFrom(cfg), clock.WallClock, auditor),
		auditor:        auditor,
	}
}

// RegisterRoutes registers authentication routes under /api/auth.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/api/auth")
	group.GET("/status", ac.Status)
	group.POST("/login", ac.Login)
	group.POST("/logout", ac.Logout)
	group.POST("/setup", ac.Setup)
	group.GET("/me", RequireAuth(), ac.Me)
	group.POST("/password", RequireAuth(), ac.ChangePassword)
	group.POST("/token", RequireAuth(), ac.GenerateToken)
	group.DELETE("/token", RequireAuth(), ac.RevokeToken)
}

func (ac *AuthController) audit(c *gin.Context, userID uint, action string, success bool) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Status reports the auth mode and whether setup is still needed.
func (ac *AuthController) Status(c *gin.Context) {
	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		log.Printf("[AUTH] Failed to count users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mode":          ac.service.GetAuthMode(),
		"setup_needed":  !hasUsers,
		"authenticated": IsAuthenticated(c),
	})
}

// Login checks credentials and starts a cookie session.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required", "code": "VALIDATION_ERROR"})
		return
	}
	clientIP := c.ClientIP()

	if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, req.Username); !allowed {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "too many login attempts",
			"code":        "RATE_LIMITED",
			"retry_after": retryAfter.Round(time.Second).String(),
		})
		return
	}

	user, err := ac.service.Authenticate(req.Username, req.Password)
	if err != nil {
		if locked, lockout := ac.rateLimiter.RecordFailure(clientIP, req.Username); locked {
			log.Printf("[AUTH] Login for %q from %s locked for %s", req.Username, clientIP, lockout)
		}
		ac.audit(c, 0, "login_failed", false)

		if errors.Is(err, ErrAccountLocked) {
			c.JSON(http.StatusForbidden, gin.H{"error": "account is locked, try again later", "code": "ACCOUNT_LOCKED"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password", "code": "UNAUTHORIZED"})
		return
	}

	ac.rateLimiter.RecordSuccess(clientIP, req.Username)

	if ac.sessionManager != nil {
		if err := ac.sessionManager.Start(c.Request.Context(), user); err != nil {
			log.Printf("[AUTH] Failed to create session for user %d: %v", user.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
			return
		}
	}
	ac.audit(c, user.ID, "login", true)

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout destroys the session.
func (ac *AuthController) Logout(c *gin.Context) {
	if ac.sessionManager != nil {
		_ = ac.sessionManager.End(c.Request.Context())
	}
	if userID := GetUserID(c); userID != AnonymousUserID {
		ac.audit(c, userID, "logout", true)
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the current user.
func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.service.GetUserByID(GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "code": "UNAUTHORIZED"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "auth_type": GetAuthType(c)})
}

type setupRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// Setup creates the first ADMIN account. It is refused once any user exists.
func (ac *AuthController) Setup(c *gin.Context) {
	setupMutex.Lock()
	defer setupMutex.Unlock()

	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		log.Printf("[AUTH] Failed to count users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if hasUsers {
		c.JSON(http.StatusConflict, gin.H{"error": "setup already completed", "code": "CONFLICT"})
		return
	}

	var req setupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "VALIDATION_ERROR"})
		return
	}

	user, err := ac.service.CreateUser(NewUser{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        entities.UserRoleAdmin,
	})
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_ERROR"})
			return
		}
		if errors.Is(err, ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "CONFLICT"})
			return
		}
		log.Printf("[AUTH] Setup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if ac.sessionManager != nil {
		if err := ac.sessionManager.Start(c.Request.Context(), user); err != nil {
			log.Printf("[AUTH] Failed to start session for new admin %d: %v", user.ID, err)
		}
	}
	ac.audit(c, user.ID, "setup", true)

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword replaces the current user's password.
func (ac *AuthController) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old_password and new_password are required", "code": "VALIDATION_ERROR"})
		return
	}

	userID := GetUserID(c)
	err := ac.service.ChangePassword(userID, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
		ac.audit(c, userID, "password_changed", true)
		c.JSON(http.StatusOK, gin.H{"message": "password changed"})
	case errors.Is(err, ErrInvalidPassword):
		ac.audit(c, userID, "password_change_failed", false)
		c.JSON(http.StatusForbidden, gin.H{"error": "current password is incorrect", "code": "FORBIDDEN"})
	case isValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_ERROR"})
	default:
		log.Printf("[AUTH] Failed to change password for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// GenerateToken creates a new API token for the current user.
func (ac *AuthController) GenerateToken(c *gin.Context) {
	userID := GetUserID(c)
	token, err := ac.service.GenerateToken(userID)
	if err != nil {
		log.Printf("[AUTH] Failed to generate token for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	ac.audit(c, userID, "token_generated", true)

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"message": "Store this token securely - it will not be shown again",
	})
}

// RevokeToken revokes the API token of the current user.
func (ac *AuthController) RevokeToken(c *gin.Context) {
	userID := GetUserID(c)
	if err := ac.service.RevokeToken(userID); err != nil {
		log.Printf("[AUTH] Failed to revoke token for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	ac.audit(c, userID, "token_revoked", true)

	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}

func isValidationError(err error) bool {
	for _, target := range []error{
		ErrUsernameRequired, ErrUsernameInvalid, ErrEmailRequired, ErrEmailInvalid,
		ErrPasswordRequired, ErrPasswordTooShort, ErrPasswordTooLong, ErrPasswordContainsUsername,
		ErrInvalidRole,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
