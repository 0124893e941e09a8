// Package memories serves the persona-scoped memory endpoints.
package memories

import (
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/onlymatt/gateway/internal/config"
	"github.com/onlymatt/gateway/internal/httpapi"
	"github.com/onlymatt/gateway/internal/model"
	registrycache "github.com/onlymatt/gateway/internal/registry/cache"
	registrystore "github.com/onlymatt/gateway/internal/registry/store"
	"github.com/onlymatt/gateway/internal/security"
)

const (
	defaultRecallLimit = 10
	maxRecallLimit     = 100
)

// MountRoutes mounts POST /ai/memory/remember and GET /ai/memory/recall.
// cache may be nil when no cache backend is configured.
func MountRoutes(r *gin.Engine, store registrystore.GatewayStore, cache registrycache.RecallCache, cfg *config.Config) {
	r.POST("/ai/memory/remember", func(c *gin.Context) { postRemember(c, store, cache) })
	r.GET("/ai/memory/recall", func(c *gin.Context) { getRecall(c, store, cache, cfg) })
}

func postRemember(c *gin.Context, store registrystore.GatewayStore, cache registrycache.RecallCache) {
	var req registrystore.RememberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "invalid request body: "+err.Error())
		return
	}

	memory, err := store.Remember(c.Request.Context(), req)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	// Drop the cached pair so the next recall sees this write.
	if cache != nil && cache.Available() {
		if err := cache.Remove(c.Request.Context(), req.UserID, req.Persona); err != nil {
			log.Warn("Failed to invalidate recall cache", "userId", req.UserID, "persona", req.Persona, "err", err)
		}
	}

	httpapi.OK(c, gin.H{"memory": memory})
}

func getRecall(c *gin.Context, store registrystore.GatewayStore, cache registrycache.RecallCache, cfg *config.Config) {
	userID := c.Query("user_id")
	persona := c.Query("persona")

	limit := defaultRecallLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpapi.Fail(c, 400, httpapi.CodeValidation, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxRecallLimit {
		limit = maxRecallLimit
	}

	ctx := c.Request.Context()
	useCache := cache != nil && cache.Available()

	// The cache holds the full non-expired-at-write set per pair; the
	// limit is applied after the hit so every limit shares one entry.
	// Expiry is re-checked on every read, so a record crossing its
	// expires_at while cached is still excluded.
	if useCache {
		memories, hit, err := cache.Get(ctx, userID, persona)
		if err != nil {
			log.Warn("Recall cache read failed", "userId", userID, "persona", persona, "err", err)
		} else if hit {
			if security.CacheHitsTotal != nil {
				security.CacheHitsTotal.Inc()
			}
			memories = dropExpired(memories, time.Now().UTC())
			if len(memories) > limit {
				memories = memories[:limit]
			}
			respondMemories(c, memories)
			return
		}
		if security.CacheMissesTotal != nil {
			security.CacheMissesTotal.Inc()
		}
	}

	memories, err := store.Recall(ctx, userID, persona, maxRecallLimit)
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	if useCache {
		var ttl time.Duration
		if cfg != nil {
			ttl = cfg.RecallCacheTTL
		}
		if err := cache.Set(ctx, userID, persona, memories, ttl); err != nil {
			log.Warn("Recall cache write failed", "userId", userID, "persona", persona, "err", err)
		}
	}

	if len(memories) > limit {
		memories = memories[:limit]
	}
	respondMemories(c, memories)
}

func dropExpired(memories []model.Memory, now time.Time) []model.Memory {
	fresh := make([]model.Memory, 0, len(memories))
	for _, m := range memories {
		if !m.Expired(now) {
			fresh = append(fresh, m)
		}
	}
	return fresh
}

// respondMemories keeps an empty recall serialized as [] rather than null.
func respondMemories(c *gin.Context, memories []model.Memory) {
	if memories == nil {
		memories = []model.Memory{}
	}
	httpapi.OK(c, gin.H{"memories": memories})
}
