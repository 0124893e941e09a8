package chat

import (
	"context"
	"errors"
	"fmt"
)

// Request is one completion request to the upstream model.
type Request struct {
	Model       string
	Prompt      string
	Temperature float64
}

// Completer produces a completion for a prompt. Implementations must
// honor ctx cancellation; the caller applies the configured timeout.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrDisabled is returned when no upstream provider is configured.
var ErrDisabled = errors.New("chat provider is disabled")

// UpstreamError wraps a provider failure so routes can surface it as
// retryable, distinct from validation failures.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream error: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Loader creates a Completer from config.
type Loader func(ctx context.Context) (Completer, error)

// Plugin represents a chat provider plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a chat provider plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered chat plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named chat plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown chat provider %q; valid: %v", name, Names())
}
