package auth

import (
	"context"
	"database/sql"
	"encoding/gob"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/juju/clock"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entities"
)

// SessionCookieName is the cookie carrying the publisher session token.
const SessionCookieName = "publisher_session"

const (
	sessionKeyUserID        = "user_id"
	sessionKeyUsername      = "username"
	sessionKeyRole          = "role"
	sessionKeyLoginAt       = "login_at"
	sessionKeyRoleCheckedAt = "role_checked_at"
)

func init() {
	gob.Register(entities.UserRole(""))
	gob.Register(time.Time{})
}

// Actor is the publisher user a session belongs to, as cached in the session.
type Actor struct {
	UserID        uint
	Username      string
	Role          entities.UserRole
	LoginAt       time.Time
	RoleCheckedAt time.Time
}

func actorOf(user *entities.User) *Actor {
	return &Actor{UserID: user.ID, Username: user.Username, Role: user.Role}
}

// SessionManager keeps cookie sessions in the main sqlite database.
// A session caches its user's role; the role is reread from the users
// table once the recheck interval has passed, so a role migration
// reaches live sessions without a login.
type SessionManager struct {
	*scs.SessionManager
	clock       clock.Clock
	roleRecheck time.Duration
}

// NewSessionManager creates a session manager on the *sql.DB underlying GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	sm.Lifetime = cfg.SessionLifetime
	sm.IdleTimeout = cfg.SessionLifetime / 2

	sm.Cookie.Name = SessionCookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{
		SessionManager: sm,
		clock:          clock.WallClock,
		roleRecheck:    cfg.SessionRoleRecheck,
	}, nil
}

// Start binds the session in ctx to user after a successful login or setup.
// The token is renewed so a pre-login token cannot be fixated.
func (sm *SessionManager) Start(ctx context.Context, user *entities.User) error {
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}

	now := sm.clock.Now()
	// GetInt reads it back, so store an int
	sm.Put(ctx, sessionKeyUserID, int(user.ID))
	sm.Put(ctx, sessionKeyUsername, user.Username)
	sm.Put(ctx, sessionKeyRole, user.Role)
	sm.Put(ctx, sessionKeyLoginAt, now)
	sm.Put(ctx, sessionKeyRoleCheckedAt, now)
	return nil
}

// End destroys the session in ctx.
func (sm *SessionManager) End(ctx context.Context) error {
	return sm.Destroy(ctx)
}

// Actor returns the user bound to the session in ctx, or nil when nobody is logged in.
func (sm *SessionManager) Actor(ctx context.Context) *Actor {
	userID := sm.GetInt(ctx, sessionKeyUserID)
	if userID <= 0 {
		return nil
	}

	role, _ := sm.Get(ctx, sessionKeyRole).(entities.UserRole)
	loginAt, _ := sm.Get(ctx, sessionKeyLoginAt).(time.Time)
	checkedAt, _ := sm.Get(ctx, sessionKeyRoleCheckedAt).(time.Time)

	return &Actor{
		UserID:        uint(userID),
		Username:      sm.GetString(ctx, sessionKeyUsername),
		Role:          role,
		LoginAt:       loginAt,
		RoleCheckedAt: checkedAt,
	}
}

// NeedsRoleCheck reports whether the cached role of a is too old to trust.
// A zero or negative interval rechecks on every request.
func (sm *SessionManager) NeedsRoleCheck(a *Actor) bool {
	if sm.roleRecheck <= 0 || a.Role == "" {
		return true
	}
	return sm.clock.Now().Sub(a.RoleCheckedAt) >= sm.roleRecheck
}

// RefreshRole stores the current role of user in the session. A changed role
// renews the token, the same as a fresh login.
func (sm *SessionManager) RefreshRole(ctx context.Context, user *entities.User) (*Actor, error) {
	actor := sm.Actor(ctx)
	if actor == nil || actor.UserID != user.ID {
		return nil, ErrAuthRequired
	}

	if actor.Role != user.Role {
		if err := sm.RenewToken(ctx); err != nil {
			return nil, err
		}
		sm.Put(ctx, sessionKeyRole, user.Role)
		sm.Put(ctx, sessionKeyUsername, user.Username)
		actor.Role = user.Role
		actor.Username = user.Username
	}

	actor.RoleCheckedAt = sm.clock.Now()
	sm.Put(ctx, sessionKeyRoleCheckedAt, actor.RoleCheckedAt)
	return actor, nil
}
