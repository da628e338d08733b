package http

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, controller *HealthController) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	router := gin.New()
	router.GET("/health", controller.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w, response
}

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy when database is connected", func(t *testing.T) {
		db := setupTestDatabase(t)

		w, response := serveHealth(t, NewHealthController(db, "1.0.0"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, "ok", response.Checks["database"])
		assert.Contains(t, response.Time, "T")
	})

	t.Run("reports a missing database", func(t *testing.T) {
		w, response := serveHealth(t, NewHealthController(nil, "1.0.0"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "not configured", response.Checks["database"])
	})

	t.Run("returns unhealthy when database connection is closed", func(t *testing.T) {
		db := setupTestDatabase(t)
		db.Close()

		w, response := serveHealth(t, NewHealthController(db, "1.0.0"))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["database"], "error")
	})

	t.Run("checks the task queue database", func(t *testing.T) {
		db := setupTestDatabase(t)
		path := "./test_health_tasks_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
		tasksDB, err := sql.Open("sqlite3", path)
		require.NoError(t, err)
		t.Cleanup(func() {
			tasksDB.Close()
			os.Remove(path)
		})

		w, response := serveHealth(t, NewHealthController(db, "1.0.0").WithTaskQueue(tasksDB))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", response.Checks["task_queue"])

		tasksDB.Close()
		w, response = serveHealth(t, NewHealthController(db, "1.0.0").WithTaskQueue(tasksDB))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, response.Checks["task_queue"], "error")
	})
}
