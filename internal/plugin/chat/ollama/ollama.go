// Package ollama provides completions through a local Ollama daemon's
// native /api/chat endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/onlymatt/gateway/internal/config"
	registrychat "github.com/onlymatt/gateway/internal/registry/chat"
	"github.com/onlymatt/gateway/internal/security"
)

const defaultBaseURL = "http://localhost:11434"

func init() {
	registrychat.Register(registrychat.Plugin{
		Name: "ollama",
		Loader: func(ctx context.Context) (registrychat.Completer, error) {
			cfg := config.FromContext(ctx)
			baseURL := defaultBaseURL
			if cfg != nil && cfg.ChatBaseURL != "" {
				baseURL = cfg.ChatBaseURL
			}
			var defaultModel string
			var timeout time.Duration
			if cfg != nil {
				defaultModel = cfg.ChatModel
				timeout = cfg.ChatTimeout
			}
			return &Completer{
				baseURL:      strings.TrimRight(baseURL, "/"),
				defaultModel: defaultModel,
				timeout:      timeout,
			}, nil
		},
	})
}

// Completer calls the Ollama chat API.
type Completer struct {
	baseURL      string
	defaultModel string
	timeout      time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Error   string      `json:"error"`
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

	reqBody, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: req.Prompt}},
		Stream:   false,
		Options:  map[string]any{"temperature": req.Temperature},
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := http.DefaultClient.Do(httpReq)
	if security.ChatUpstreamDuration != nil {
		security.ChatUpstreamDuration.WithLabelValues("ollama").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return "", c.failure(fmt.Errorf("chat request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.failure(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", c.failure(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", c.failure(fmt.Errorf("parse response: %w", err))
	}
	if result.Error != "" {
		return "", c.failure(fmt.Errorf("%s", result.Error))
	}
	return result.Message.Content, nil
}

func (c *Completer) failure(err error) error {
	if security.ChatUpstreamFailures != nil {
		security.ChatUpstreamFailures.WithLabelValues("ollama").Inc()
	}
	return &registrychat.UpstreamError{Provider: "ollama", Err: err}
}

var _ registrychat.Completer = (*Completer)(nil)
