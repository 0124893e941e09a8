// Package service holds background jobs that run alongside the HTTP
// server.
package service

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	registrystore "github.com/onlymatt/gateway/internal/registry/store"
)

// Sweeper periodically reclaims expired memories and trims reports past
// the retention cap. Readers never see expired data either way; the
// sweep only keeps the tables from growing without bound.
type Sweeper struct {
	store           registrystore.GatewayStore
	interval        time.Duration
	reportRetention int
}

// NewSweeper creates a sweeper. reportRetention <= 0 disables report
// trimming; interval <= 0 falls back to one hour.
func NewSweeper(store registrystore.GatewayStore, interval time.Duration, reportRetention int) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{store: store, interval: interval, reportRetention: reportRetention}
}

// Start begins the periodic sweep loop. Returns when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Exposed for tests and for a final pass at
// shutdown if wanted.
func (s *Sweeper) Sweep(ctx context.Context) {
	purged, err := s.store.PurgeExpiredMemories(ctx)
	if err != nil {
		log.Error("Sweep: purge expired memories failed", "err", err)
	} else if purged > 0 {
		log.Info("Sweep: purged expired memories", "count", purged)
	}

	if s.reportRetention > 0 {
		trimmed, err := s.store.TrimReports(ctx, s.reportRetention)
		if err != nil {
			log.Error("Sweep: report retention trim failed", "err", err)
		} else if trimmed > 0 {
			log.Info("Sweep: trimmed reports", "count", trimmed, "keep", s.reportRetention)
		}
	}
}
