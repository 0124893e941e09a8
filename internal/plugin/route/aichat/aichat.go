// Package aichat serves the public chat completion endpoint.
package aichat

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onlymatt/gateway/internal/config"
	"github.com/onlymatt/gateway/internal/httpapi"
	registrychat "github.com/onlymatt/gateway/internal/registry/chat"
)

const retryBackoff = 250 * time.Millisecond

type chatRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

// MountRoutes mounts POST /ai/chat.
func MountRoutes(r *gin.Engine, completer registrychat.Completer, cfg *config.Config) {
	r.POST("/ai/chat", func(c *gin.Context) { postChat(c, completer, cfg) })
}

func postChat(c *gin.Context, completer registrychat.Completer, cfg *config.Config) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "invalid request body: "+err.Error())
		return
	}
	if req.Prompt == "" {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "prompt must not be empty")
		return
	}
	if req.Temperature < 0 || req.Temperature > 1 {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "temperature must be between 0 and 1")
		return
	}
	if req.Stream {
		httpapi.Fail(c, 400, httpapi.CodeValidation, "streaming is not supported")
		return
	}

	model := req.Model
	if model == "" && cfg != nil {
		model = cfg.ChatModel
	}

	ctx := c.Request.Context()
	upstream := registrychat.Request{Model: model, Prompt: req.Prompt, Temperature: req.Temperature}

	response, err := completer.Complete(ctx, upstream)
	if err != nil && retryable(err) && ctx.Err() == nil {
		// One retry for transient upstream failures, then give up.
		select {
		case <-ctx.Done():
		case <-time.After(retryBackoff):
			response, err = completer.Complete(ctx, upstream)
		}
	}
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	httpapi.OK(c, gin.H{"response": response, "model": model})
}

func retryable(err error) bool {
	var upstreamErr *registrychat.UpstreamError
	return errors.As(err, &upstreamErr)
}
