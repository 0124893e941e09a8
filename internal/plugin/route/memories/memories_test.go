package memories_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onlymatt/gateway/internal/config"
	"github.com/onlymatt/gateway/internal/model"
	"github.com/onlymatt/gateway/internal/plugin/route/memories"
	"github.com/onlymatt/gateway/internal/plugin/store/gormstore"
	registrycache "github.com/onlymatt/gateway/internal/registry/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// memCache is an in-process RecallCache for exercising the cache path.
type memCache struct {
	data    map[string][]model.Memory
	removed []string
}

func newMemCache() *memCache { return &memCache{data: map[string][]model.Memory{}} }

func (m *memCache) Available() bool { return true }

func (m *memCache) Get(ctx context.Context, userID, persona string) ([]model.Memory, bool, error) {
	memories, ok := m.data[userID+"/"+persona]
	return memories, ok, nil
}

func (m *memCache) Set(ctx context.Context, userID, persona string, memories []model.Memory, ttl time.Duration) error {
	m.data[userID+"/"+persona] = memories
	return nil
}

func (m *memCache) Remove(ctx context.Context, userID, persona string) error {
	key := userID + "/" + persona
	m.removed = append(m.removed, key)
	delete(m.data, key)
	return nil
}

var _ registrycache.RecallCache = (*memCache)(nil)

func newRouter(t *testing.T, cache registrycache.RecallCache) *gin.Engine {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Memory{}))

	gin.SetMode(gin.TestMode)
	cfg := config.DefaultConfig()
	router := gin.New()
	memories.MountRoutes(router, gormstore.New(db, nil), cache, &cfg)
	return router
}

func remember(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ai/memory/remember", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func recall(t *testing.T, router *gin.Engine, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/ai/memory/recall?"+query, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRememberThenRecall(t *testing.T) {
	router := newRouter(t, nil)

	rec := remember(t, router, `{"user_id":"matt","persona":"coach_v1","key":"goal","value":"run a marathon","confidence":0.9,"ttl_days":30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	rec = recall(t, router, "user_id=matt&persona=coach_v1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		OK       bool           `json:"ok"`
		Memories []model.Memory `json:"memories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.OK)
	require.Len(t, body.Memories, 1)
	assert.Equal(t, "goal", body.Memories[0].Key)
	assert.Equal(t, "run a marathon", body.Memories[0].Value)
}

func TestRememberValidationEnvelope(t *testing.T) {
	router := newRouter(t, nil)

	rec := remember(t, router, `{"user_id":"matt","persona":"coach_v1","key":"goal","value":"x","confidence":1.5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":false`)
	assert.Contains(t, rec.Body.String(), `"code":"validation"`)
	assert.Contains(t, rec.Body.String(), "confidence")
}

func TestRecallUnknownPairIsEmpty(t *testing.T) {
	router := newRouter(t, nil)

	rec := recall(t, router, "user_id=nobody&persona=coach_v1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"memories":[]`)
}

func TestRecallLimitValidation(t *testing.T) {
	router := newRouter(t, nil)

	rec := recall(t, router, "user_id=matt&persona=coach_v1&limit=abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = recall(t, router, "user_id=matt&persona=coach_v1&limit=-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecallUsesCache(t *testing.T) {
	cache := newMemCache()
	router := newRouter(t, cache)

	rec := remember(t, router, `{"user_id":"matt","persona":"coach_v1","key":"goal","value":"v1","confidence":0.5,"ttl_days":7}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// First recall misses and fills the cache.
	rec = recall(t, router, "user_id=matt&persona=coach_v1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, cache.data, "matt/coach_v1")

	// Second recall is served from the cache.
	rec = recall(t, router, "user_id=matt&persona=coach_v1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"v1"`)
}

func TestRecallCacheHitExcludesExpired(t *testing.T) {
	cache := newMemCache()
	router := newRouter(t, cache)

	now := time.Now().UTC()
	cache.data["matt/coach_v1"] = []model.Memory{
		{
			UserID: "matt", Persona: "coach_v1", Key: "stale", Value: "old goal",
			Confidence: 0.9, CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Minute),
		},
		{
			UserID: "matt", Persona: "coach_v1", Key: "goal", Value: "run a marathon",
			Confidence: 0.9, CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(24 * time.Hour),
		},
	}

	rec := recall(t, router, "user_id=matt&persona=coach_v1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Memories []model.Memory `json:"memories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Memories, 1)
	assert.Equal(t, "goal", body.Memories[0].Key)
}

func TestRecallCacheHitAllExpired(t *testing.T) {
	cache := newMemCache()
	router := newRouter(t, cache)

	now := time.Now().UTC()
	cache.data["matt/coach_v1"] = []model.Memory{
		{
			UserID: "matt", Persona: "coach_v1", Key: "stale", Value: "v",
			Confidence: 0.5, CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Second),
		},
	}

	rec := recall(t, router, "user_id=matt&persona=coach_v1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"memories":[]`)
}

func TestRememberInvalidatesCache(t *testing.T) {
	cache := newMemCache()
	router := newRouter(t, cache)

	rec := remember(t, router, `{"user_id":"matt","persona":"coach_v1","key":"goal","value":"v1","confidence":0.5,"ttl_days":7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = recall(t, router, "user_id=matt&persona=coach_v1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = remember(t, router, `{"user_id":"matt","persona":"coach_v1","key":"goal","value":"v2","confidence":0.6,"ttl_days":7}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, cache.removed, "matt/coach_v1")

	// Post-invalidation recall sees the new value.
	rec = recall(t, router, "user_id=matt&persona=coach_v1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"v2"`)
	assert.NotContains(t, rec.Body.String(), `"v1"`)
}
