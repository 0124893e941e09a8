// Package noop is the default cache backend: every lookup misses and
// every write is discarded, so recall always reads the store directly.
package noop

import (
	"context"
	"time"

	"github.com/onlymatt/gateway/internal/model"
	registrycache "github.com/onlymatt/gateway/internal/registry/cache"
)

func init() {
	registrycache.Register(registrycache.Plugin{
		Name: "none",
		Loader: func(ctx context.Context) (registrycache.RecallCache, error) {
			return Cache{}, nil
		},
	})
}

// Cache is a RecallCache that never holds anything.
type Cache struct{}

func (Cache) Available() bool { return false }

func (Cache) Get(ctx context.Context, userID, persona string) ([]model.Memory, bool, error) {
	return nil, false, nil
}

func (Cache) Set(ctx context.Context, userID, persona string, memories []model.Memory, ttl time.Duration) error {
	return nil
}

func (Cache) Remove(ctx context.Context, userID, persona string) error {
	return nil
}

var _ registrycache.RecallCache = Cache{}
