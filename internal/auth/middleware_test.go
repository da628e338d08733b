package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type whoami struct {
	UserID   uint              `json:"user_id"`
	Role     entities.UserRole `json:"role"`
	AuthType AuthType          `json:"auth_type"`
}

func newTestRouter(m *Middleware, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(m.Handler())
	handlers := append(extra, func(c *gin.Context) {
		c.JSON(http.StatusOK, whoami{UserID: GetUserID(c), Role: GetUserRole(c), AuthType: GetAuthType(c)})
	})
	router.GET("/api/submissions", handlers...)
	router.GET("/api/library/books", handlers...)
	router.GET("/health", handlers...)
	return router
}

func doGet(router http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeWhoami(t *testing.T, w *httptest.ResponseRecorder) whoami {
	t.Helper()
	var got whoami
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestMiddleware_NoneModeDefaultsToAdmin(t *testing.T) {
	svc, _ := setupTestService(t, config.AuthModeNone)
	admin := mustCreateUser(t, svc, "root", entities.UserRoleAdmin)
	router := newTestRouter(NewMiddleware(svc, nil, testAuthConfig(config.AuthModeNone)))

	w := doGet(router, "/api/submissions", nil)

	require.Equal(t, http.StatusOK, w.Code)
	got := decodeWhoami(t, w)
	assert.Equal(t, admin.ID, got.UserID)
	assert.Equal(t, entities.UserRoleAdmin, got.Role)
	assert.Equal(t, AuthTypeDebug, got.AuthType)
}

func TestMiddleware_NoneModeDebugHeader(t *testing.T) {
	svc, _ := setupTestService(t, config.AuthModeNone)
	mustCreateUser(t, svc, "root", entities.UserRoleAdmin)
	sm := mustCreateUser(t, svc, "storymgr", entities.UserRoleStoryManager)
	router := newTestRouter(NewMiddleware(svc, nil, testAuthConfig(config.AuthModeNone)))

	w := doGet(router, "/api/submissions", map[string]string{DebugUserHeader: "storymgr"})

	got := decodeWhoami(t, w)
	assert.Equal(t, sm.ID, got.UserID)
	assert.Equal(t, entities.UserRoleStoryManager, got.Role)
}

func TestMiddleware_NoneModeUnknownUserIsAnonymous(t *testing.T) {
	svc, _ := setupTestService(t, config.AuthModeNone)
	router := newTestRouter(NewMiddleware(svc, nil, testAuthConfig(config.AuthModeNone)))

	w := doGet(router, "/api/submissions", map[string]string{DebugUserHeader: "ghost"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, AnonymousUserID, decodeWhoami(t, w).UserID)
}

func TestMiddleware_LocalModeRequiresAuth(t *testing.T) {
	svc, _ := setupTestService(t, config.AuthModeLocal)
	router := newTestRouter(NewMiddleware(svc, nil, testAuthConfig(config.AuthModeLocal)))

	w := doGet(router, "/api/submissions", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestMiddleware_LocalModePublicPaths(t *testing.T) {
	svc, _ := setupTestService(t, config.AuthModeLocal)
	router := newTestRouter(NewMiddleware(svc, nil, testAuthConfig(config.AuthModeLocal)))

	for _, path := range []string{"/health", "/api/library/books"} {
		w := doGet(router, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, AnonymousUserID, decodeWhoami(t, w).UserID, path)
	}
}

func TestMiddleware_BearerToken(t *testing.T) {
	svc, _ := setupTestService(t, config.AuthModeLocal)
	user := mustCreateUser(t, svc, "bm", entities.UserRoleBookManager)
	token, err := svc.GenerateToken(user.ID)
	require.NoError(t, err)
	router := newTestRouter(NewMiddleware(svc, nil, testAuthConfig(config.AuthModeLocal)))

	w := doGet(router, "/api/submissions", map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeWhoami(t, w)
	assert.Equal(t, user.ID, got.UserID)
	assert.Equal(t, AuthTypeBearer, got.AuthType)

	for _, header := range []string{"Bearer nope", "Basic abc", "Bearer", token} {
		w := doGet(router, "/api/submissions", map[string]string{"Authorization": header})
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestMiddleware_BearerOnPublicPathStillIdentifies(t *testing.T) {
	svc, _ := setupTestService(t, config.AuthModeLocal)
	user := mustCreateUser(t, svc, "reader", entities.UserRoleLearner)
	token, err := svc.GenerateToken(user.ID)
	require.NoError(t, err)
	router := newTestRouter(NewMiddleware(svc, nil, testAuthConfig(config.AuthModeLocal)))

	w := doGet(router, "/api/library/books", map[string]string{"Authorization": "Bearer " + token})

	assert.Equal(t, user.ID, decodeWhoami(t, w).UserID)
}

func TestRequireRole(t *testing.T) {
	svc, _ := setupTestService(t, config.AuthModeNone)
	mustCreateUser(t, svc, "root", entities.UserRoleAdmin)
	mustCreateUser(t, svc, "writer", entities.UserRoleWriter)
	m := NewMiddleware(svc, nil, testAuthConfig(config.AuthModeNone))
	router := newTestRouter(m, RequireRole(entities.UserRoleAdmin, entities.UserRoleContentAdmin))

	assert.Equal(t, http.StatusOK, doGet(router, "/api/submissions", nil).Code)

	w := doGet(router, "/api/submissions", map[string]string{DebugUserHeader: "writer"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")

	w = doGet(router, "/api/submissions", map[string]string{DebugUserHeader: "ghost"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestContextHelpers_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Equal(t, AnonymousUserID, GetUserID(c))
	assert.Empty(t, GetUsername(c))
	assert.Empty(t, GetUserRole(c))
	assert.Equal(t, AuthTypeNone, GetAuthType(c))
	assert.False(t, IsAuthenticated(c))
}
