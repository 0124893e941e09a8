package chathistory_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/onlymatt/gateway/internal/model"
	"github.com/onlymatt/gateway/internal/plugin/route/chathistory"
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
	require.NoError(t, db.AutoMigrate(&model.ChatExchange{}))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	auth := security.AdminKeyMiddleware(security.NewStaticKeyVerifier(adminKey))
	chathistory.MountRoutes(router, gormstore.New(db, nil), auth)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(security.AdminKeyHeader, adminKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHistoryRequiresAdminKey(t *testing.T) {
	router := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/chat/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAppendAndListExchanges(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/admin/chat/history", `{"user_message":"hi","assistant_response":"hello","model":"llama3","temperature":0.7}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Exchange model.ChatExchange `json:"exchange"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", created.Exchange.ID.String())

	rec = do(t, router, http.MethodPost, "/admin/chat/history", `{"user_message":"second","assistant_response":"sure","model":"llama3","temperature":0.7}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/admin/chat/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		History []model.ChatExchange `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.History, 2)
	assert.Equal(t, "second", listed.History[0].UserMessage, "newest first")
}

func TestAppendExchangeValidation(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/admin/chat/history", `{"user_message":"","assistant_response":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"validation"`)
}

func TestListExchangesLimitAndEmpty(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodGet, "/admin/chat/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"history":[]`)

	rec = do(t, router, http.MethodGet, "/admin/chat/history?limit=-3", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
