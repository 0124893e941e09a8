package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/onlymatt/gateway/internal/model"
)

// RecallCache caches recall results per (user, persona) pair. Remember
// invalidates the pair so readers never see a stale upsert for longer
// than one write round-trip.
type RecallCache interface {
	Available() bool
	Get(ctx context.Context, userID, persona string) ([]model.Memory, bool, error)
	Set(ctx context.Context, userID, persona string, memories []model.Memory, ttl time.Duration) error
	Remove(ctx context.Context, userID, persona string) error
}

// Loader creates a cache from config.
type Loader func(ctx context.Context) (RecallCache, error)

// Plugin represents a cache plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a cache plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered cache plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named cache plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown cache %q; valid: %v", name, Names())
}
