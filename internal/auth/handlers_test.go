package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entities"
)

type recordingAuditor struct {
	recordingLockouts
	mu      sync.Mutex
	actions []string
}

func (a *recordingAuditor) LogAuth(_ uint, action string, _, _ string, _ bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

type authFixture struct {
	router   *gin.Engine
	service  *Service
	sessions *SessionManager
	auditor  *recordingAuditor
}

func whoamiHandler(c *gin.Context) {
	c.JSON(http.StatusOK, whoami{UserID: GetUserID(c), Role: GetUserRole(c), AuthType: GetAuthType(c)})
}

func setupAuthRouter(t *testing.T, mode config.AuthMode) *authFixture {
	t.Helper()
	db := setupTestDB(t)
	cfg := testAuthConfig(mode)
	svc := NewService(db, cfg)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)

	auditor := &recordingAuditor{}
	controller := NewAuthController(svc, sm, cfg, auditor)

	router := gin.New()
	router.Use(sm.Handler())
	router.Use(NewMiddleware(svc, sm, cfg).Handler())
	controller.RegisterRoutes(router)
	router.GET("/api/review/queue", RequireRole(entities.UserRoleStoryManager, entities.UserRoleContentAdmin), whoamiHandler)

	return &authFixture{router: router, service: svc, sessions: sm, auditor: auditor}
}

func (f *authFixture) login(t *testing.T, username string) []*http.Cookie {
	t.Helper()
	w := f.do(http.MethodPost, "/api/auth/login", gin.H{"username": username, "password": testPassword}, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func (f *authFixture) do(method, path string, body any, cookies []*http.Cookie, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestAuthController_SetupOnlyOnce(t *testing.T) {
	f := setupAuthRouter(t, config.AuthModeLocal)

	w := f.do(http.MethodGet, "/api/auth/status", nil, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"setup_needed":true`)

	w = f.do(http.MethodPost, "/api/auth/setup", gin.H{"username": "root", "email": "root@stories.test", "password": "short"}, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/auth/setup", gin.H{"username": "root", "email": "root@stories.test", "password": testPassword}, nil, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	user, err := f.service.ResolveDebugUser("root")
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleAdmin, user.Role)

	w = f.do(http.MethodPost, "/api/auth/setup", gin.H{"username": "second", "email": "second@stories.test", "password": testPassword}, nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthController_LoginMeLogout(t *testing.T) {
	f := setupAuthRouter(t, config.AuthModeLocal)
	mustCreateUser(t, f.service, "writer", entities.UserRoleWriter)

	w := f.do(http.MethodPost, "/api/auth/login", gin.H{"username": "writer", "password": "wrong-password-123"}, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	cookies := f.login(t, "writer")
	assert.Equal(t, SessionCookieName, cookies[0].Name)

	w = f.do(http.MethodGet, "/api/auth/me", nil, cookies, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"writer"`)
	assert.Contains(t, w.Body.String(), `"auth_type":"session"`)

	w = f.do(http.MethodPost, "/api/auth/logout", nil, cookies, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/auth/me", nil, w.Result().Cookies(), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	f.auditor.mu.Lock()
	defer f.auditor.mu.Unlock()
	assert.Equal(t, []string{"login_failed", "login", "logout"}, f.auditor.actions)
}

func TestAuthController_LoginRateLimited(t *testing.T) {
	f := setupAuthRouter(t, config.AuthModeLocal)
	mustCreateUser(t, f.service, "writer", entities.UserRoleWriter)

	for i := 0; i < 3; i++ {
		f.do(http.MethodPost, "/api/auth/login", gin.H{"username": "writer", "password": "wrong-password-123"}, nil, nil)
	}

	w := f.do(http.MethodPost, "/api/auth/login", gin.H{"username": "writer", "password": testPassword}, nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	lockouts := f.auditor.all()
	require.Len(t, lockouts, 1)
	assert.Equal(t, "writer", lockouts[0].username)
	assert.Equal(t, 3, lockouts[0].attempts)
}

func TestAuthController_SessionRoleFollowsRoleChange(t *testing.T) {
	f := setupAuthRouter(t, config.AuthModeLocal)
	clk := testclock.NewClock(loginStart)
	f.sessions.clock = clk
	f.sessions.roleRecheck = time.Minute
	writer := mustCreateUser(t, f.service, "amina", entities.UserRoleWriter)

	cookies := f.login(t, "amina")
	w := f.do(http.MethodGet, "/api/review/queue", nil, cookies, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.NoError(t, f.service.db.Model(&entities.User{}).Where("id = ?", writer.ID).
		Update("role", entities.UserRoleStoryManager).Error)

	// The cached role holds until the recheck interval passes
	w = f.do(http.MethodGet, "/api/review/queue", nil, cookies, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	clk.Advance(time.Minute)
	w = f.do(http.MethodGet, "/api/review/queue", nil, cookies, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeWhoami(t, w)
	assert.Equal(t, entities.UserRoleStoryManager, got.Role)
	assert.Equal(t, AuthTypeSession, got.AuthType)

	renewed := w.Result().Cookies()
	require.NotEmpty(t, renewed, "a role change renews the session token")
	assert.NotEqual(t, cookies[0].Value, renewed[0].Value)

	w = f.do(http.MethodGet, "/api/review/queue", nil, renewed, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/review/queue", nil, cookies, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthController_DeletedUserSessionEnds(t *testing.T) {
	f := setupAuthRouter(t, config.AuthModeLocal)
	reviewer := mustCreateUser(t, f.service, "reviewer", entities.UserRoleStoryManager)

	cookies := f.login(t, "reviewer")
	w := f.do(http.MethodGet, "/api/review/queue", nil, cookies, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, f.service.db.Delete(&entities.User{}, reviewer.ID).Error)

	w = f.do(http.MethodGet, "/api/review/queue", nil, cookies, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	cleared := w.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Empty(t, cleared[0].Value)
}

func TestAuthController_TokenLifecycle(t *testing.T) {
	f := setupAuthRouter(t, config.AuthModeNone)
	mustCreateUser(t, f.service, "root", entities.UserRoleAdmin)

	w := f.do(http.MethodPost, "/api/auth/token", nil, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	_, err := f.service.ValidateToken(resp.Token)
	require.NoError(t, err)

	w = f.do(http.MethodDelete, "/api/auth/token", nil, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, err = f.service.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthController_ChangePassword(t *testing.T) {
	f := setupAuthRouter(t, config.AuthModeNone)
	mustCreateUser(t, f.service, "root", entities.UserRoleAdmin)

	w := f.do(http.MethodPost, "/api/auth/password", gin.H{"old_password": "wrong-password-123", "new_password": "a-brand-new-password"}, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPost, "/api/auth/password", gin.H{"old_password": testPassword, "new_password": "short"}, nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/auth/password", gin.H{"old_password": testPassword, "new_password": "a-brand-new-password"}, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthController_MeRequiresUser(t *testing.T) {
	f := setupAuthRouter(t, config.AuthModeNone)

	w := f.do(http.MethodGet, "/api/auth/me", nil, nil, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
