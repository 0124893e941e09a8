// Package openai provides completions through any OpenAI-compatible API.
// Pointing ChatBaseURL at Groq, OpenRouter, or a local vLLM works the
// same way; only the key and model change.
package openai

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/onlymatt/gateway/internal/config"
	registrychat "github.com/onlymatt/gateway/internal/registry/chat"
	"github.com/onlymatt/gateway/internal/security"
	goopenai "github.com/sashabaranov/go-openai"
)

func init() {
	registrychat.Register(registrychat.Plugin{
		Name: "openai",
		Loader: func(ctx context.Context) (registrychat.Completer, error) {
			cfg := config.FromContext(ctx)
			if cfg == nil || cfg.ChatAPIKey == "" {
				return nil, fmt.Errorf("openai chat: OM_GATEWAY_CHAT_API_KEY is required")
			}
			clientConfig := goopenai.DefaultConfig(cfg.ChatAPIKey)
			if cfg.ChatBaseURL != "" {
				clientConfig.BaseURL = cfg.ChatBaseURL
			}
			return &Completer{
				client:       goopenai.NewClientWithConfig(clientConfig),
				defaultModel: cfg.ChatModel,
				timeout:      cfg.ChatTimeout,
			}, nil
		},
	})
}

// Completer calls an OpenAI-compatible chat completions endpoint.
type Completer struct {
	client       *goopenai.Client
	defaultModel string
	timeout      time.Duration
}

func (c *Completer) Complete(ctx context.Context, req registrychat.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// The request struct marshals Temperature with omitempty, so an exact
	// zero would be dropped and the upstream default would apply. The
	// smallest nonzero float survives marshaling and still means
	// deterministic sampling.
	temperature := float32(req.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: temperature,
	})
	if security.ChatUpstreamDuration != nil {
		security.ChatUpstreamDuration.WithLabelValues("openai").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if security.ChatUpstreamFailures != nil {
			security.ChatUpstreamFailures.WithLabelValues("openai").Inc()
		}
		return "", &registrychat.UpstreamError{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &registrychat.UpstreamError{Provider: "openai", Err: fmt.Errorf("empty response")}
	}
	return resp.Choices[0].Message.Content, nil
}

var _ registrychat.Completer = (*Completer)(nil)
