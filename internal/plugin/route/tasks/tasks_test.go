package tasks_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/onlymatt/gateway/internal/model"
	"github.com/onlymatt/gateway/internal/plugin/route/tasks"
	"github.com/onlymatt/gateway/internal/plugin/store/gormstore"
	"github.com/onlymatt/gateway/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const adminKey = "s3cret"

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Task{}))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	auth := security.AdminKeyMiddleware(security.NewStaticKeyVerifier(adminKey))
	tasks.MountRoutes(router, gormstore.New(db, nil), auth)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(security.AdminKeyHeader, adminKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createTask(t *testing.T, router *gin.Engine, body string) model.Task {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/admin/tasks", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Task model.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Task
}

func TestTasksRequireAdminKey(t *testing.T) {
	router := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/tasks", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"auth_missing"`)
}

func TestCreateAndListTasks(t *testing.T) {
	router := newRouter(t)

	task := createTask(t, router, `{"title":"Edit teaser","description":"Cut the Friday teaser","priority":"high"}`)
	assert.Equal(t, "Edit teaser", task.Title)
	assert.Equal(t, model.PriorityHigh, task.Priority)
	assert.Equal(t, model.StatusPending, task.Status)

	rec := do(t, router, http.MethodGet, "/admin/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Tasks []model.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, task.ID, resp.Tasks[0].ID)
}

func TestListTasksEmptyIsArray(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodGet, "/admin/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tasks":[]`)
}

func TestCreateTaskValidation(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/admin/tasks", `{"title":"","description":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"validation"`)

	rec = do(t, router, http.MethodPost, "/admin/tasks", `{"title":"x","description":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/admin/tasks", `{"title":"x","description":"y","priority":"urgent"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "priority")
}

func TestUpdateTaskStatus(t *testing.T) {
	router := newRouter(t)
	task := createTask(t, router, `{"title":"Backup vault","description":"Weekly archive run"}`)

	rec := do(t, router, http.MethodPut, "/admin/tasks/"+task.ID.String(), `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Task model.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusCompleted, resp.Task.Status)
}

func TestUpdateTaskErrors(t *testing.T) {
	router := newRouter(t)
	task := createTask(t, router, `{"title":"Backup vault","description":"Weekly archive run"}`)

	rec := do(t, router, http.MethodPut, "/admin/tasks/not-a-uuid", `{"status":"completed"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid task id")

	rec = do(t, router, http.MethodPut, "/admin/tasks/"+task.ID.String(), `{"status":"archived"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPut, "/admin/tasks/00000000-0000-0000-0000-000000000001", `{"status":"completed"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"not_found"`)
}

func TestDeleteTask(t *testing.T) {
	router := newRouter(t)
	task := createTask(t, router, `{"title":"Backup vault","description":"Weekly archive run"}`)

	rec := do(t, router, http.MethodDelete, "/admin/tasks/"+task.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	rec = do(t, router, http.MethodDelete, "/admin/tasks/"+task.ID.String(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
