package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
	ContextKeyAuthType = "auth_type" // "session", "bearer", "debug" or "none"
)

// DebugUserHeader selects the acting user when authentication is disabled.
const DebugUserHeader = "X-Debug-User"

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeDebug   AuthType = "debug"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// AnonymousUserID marks a request without a resolved user.
const AnonymousUserID = uint(0)

// Middleware handles authentication for HTTP requests.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	config         config.Auth
	publicPaths    map[string]bool
	publicPrefixes []string
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager, cfg config.Auth) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		config:         cfg,
		publicPaths: map[string]bool{
			"/health":          true,
			"/ping":            true,
			"/api/auth/login":  true,
			"/api/auth/setup":  true,
			"/api/featured":    true,
			"/api/auth/status": true,
		},
		publicPrefixes: []string{"/api/library"},
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.Mode == config.AuthModeNone {
		return m.debugHandler()
	}
	return m.authHandler()
}

// debugHandler resolves the actor from X-Debug-User, falling back to the first admin.
func (m *Middleware) debugHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := m.service.ResolveDebugUser(c.GetHeader(DebugUserHeader))
		if err != nil {
			c.Set(ContextKeyUserID, AnonymousUserID)
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
			return
		}
		m.setActorContext(c, actorOf(user), AuthTypeDebug)
		c.Next()
	}
}

func (m *Middleware) authHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := m.tryBearerAuth(c); user != nil {
			m.setActorContext(c, actorOf(user), AuthTypeBearer)
			c.Next()
			return
		}

		if actor := m.trySessionAuth(c); actor != nil {
			m.setActorContext(c, actor, AuthTypeSession)
			c.Next()
			return
		}

		if m.isPublicPath(c.Request.URL.Path) {
			c.Set(ContextKeyUserID, AnonymousUserID)
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "authentication required",
			"code":  "UNAUTHORIZED",
		})
	}
}

func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.User {
	token, ok := bearerToken(c)
	if !ok {
		return nil
	}
	user, err := m.service.ValidateToken(token)
	if err != nil {
		return nil
	}
	return user
}

// trySessionAuth returns the session's actor. The cached role is trusted until
// the recheck interval passes; then the user is reread and a deleted user's
// session is ended.
func (m *Middleware) trySessionAuth(c *gin.Context) *Actor {
	if m.sessionManager == nil {
		return nil
	}

	ctx := c.Request.Context()
	actor := m.sessionManager.Actor(ctx)
	if actor == nil {
		return nil
	}
	if !m.sessionManager.NeedsRoleCheck(actor) {
		return actor
	}

	user, err := m.service.GetUserByID(actor.UserID)
	if errors.Is(err, ErrUserNotFound) {
		log.Printf("[AUTH] Ending session of deleted user %d (%s)", actor.UserID, actor.Username)
		_ = m.sessionManager.End(ctx)
		return nil
	}
	if err != nil {
		log.Printf("[AUTH] Failed to recheck role of user %d: %v", actor.UserID, err)
		return nil
	}

	previous := actor.Role
	actor, err = m.sessionManager.RefreshRole(ctx, user)
	if err != nil {
		log.Printf("[AUTH] Failed to refresh session of user %d: %v", user.ID, err)
		return nil
	}
	if previous != actor.Role {
		log.Printf("[AUTH] Session of %s now carries role %s (was %s)", actor.Username, actor.Role, previous)
	}
	return actor
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (m *Middleware) setActorContext(c *gin.Context, actor *Actor, authType AuthType) {
	c.Set(ContextKeyUserID, actor.UserID)
	c.Set(ContextKeyUsername, actor.Username)
	c.Set(ContextKeyRole, actor.Role)
	c.Set(ContextKeyAuthType, authType)
}

func (m *Middleware) isPublicPath(path string) bool {
	if m.publicPaths[path] {
		return true
	}
	for _, prefix := range m.publicPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// RequireAuth rejects requests without a resolved user.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == AnonymousUserID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
				"code":  "UNAUTHORIZED",
			})
			return
		}
		c.Next()
	}
}

// RequireRole rejects requests whose user holds none of roles. It reads the
// role the auth middleware resolved: the debug actor's, the token owner's, or
// the one cached in the session.
func RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	roleSet := make(map[entities.UserRole]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		if GetUserID(c) == AnonymousUserID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
				"code":  "UNAUTHORIZED",
			})
			return
		}
		if !roleSet[GetUserRole(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient permissions",
				"code":  "FORBIDDEN",
			})
			return
		}
		c.Next()
	}
}

// GetUserID retrieves the authenticated user's ID from the context.
// Returns AnonymousUserID if no user was resolved.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return AnonymousUserID
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		if username, ok := name.(string); ok {
			return username
		}
	}
	return ""
}

// GetUserRole retrieves the authenticated user's role from the context.
func GetUserRole(c *gin.Context) entities.UserRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}

// IsAuthenticated returns true if the request carries a resolved user.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != AnonymousUserID
}
