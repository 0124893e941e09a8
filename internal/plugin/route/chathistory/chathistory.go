// Package chathistory serves the admin chat history endpoints. The chat
// endpoint itself never writes history; persisting an exchange is an
// explicit admin call.
package chathistory

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/onlymatt/gateway/internal/httpapi"
	"github.com/onlymatt/gateway/internal/model"
	registrystore "github.com/onlymatt/gateway/internal/registry/store"
)

// MountRoutes mounts the /admin/chat/history endpoints behind the admin
// key guard.
func MountRoutes(r *gin.Engine, store registrystore.GatewayStore, auth gin.HandlerFunc) {
	g := r.Group("/admin/chat/history", auth)
	g.POST("", func(c *gin.Context) { appendExchange(c, store) })
	g.GET("", func(c *gin.Context) { listExchanges(c, store) })
}

func appendExchange(c *gin.Context, store registrystore.GatewayStore) {
	var req struct {
		UserMessage       string  `json:"user_message"`
		AssistantResponse string  `json:"assistant_response"`
		Model             string  `json:"model"`
		Temperature       float64 `json:"temperature"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "invalid request body: "+err.Error())
		return
	}

	exchange, err := store.AppendChatExchange(c.Request.Context(), model.ChatExchange{
		UserMessage:       req.UserMessage,
		AssistantResponse: req.AssistantResponse,
		Model:             req.Model,
		Temperature:       req.Temperature,
	})
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	httpapi.Created(c, gin.H{"exchange": exchange})
}

func listExchanges(c *gin.Context, store registrystore.GatewayStore) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpapi.Fail(c, 400, httpapi.CodeValidation, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	exchanges, err := store.ListChatExchanges(c.Request.Context(), limit)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	if exchanges == nil {
		exchanges = []model.ChatExchange{}
	}
	httpapi.OK(c, gin.H{"history": exchanges})
}
