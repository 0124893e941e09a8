package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/onlymatt/gateway/internal/config"
	"github.com/onlymatt/gateway/internal/explorer"
	"github.com/onlymatt/gateway/internal/plugin/route/aichat"
	"github.com/onlymatt/gateway/internal/plugin/route/chathistory"
	"github.com/onlymatt/gateway/internal/plugin/route/files"
	"github.com/onlymatt/gateway/internal/plugin/route/memories"
	"github.com/onlymatt/gateway/internal/plugin/route/reports"
	routesystem "github.com/onlymatt/gateway/internal/plugin/route/system"
	"github.com/onlymatt/gateway/internal/plugin/route/tasks"
	"github.com/onlymatt/gateway/internal/report"
	registrycache "github.com/onlymatt/gateway/internal/registry/cache"
	registrychat "github.com/onlymatt/gateway/internal/registry/chat"
	registrymigrate "github.com/onlymatt/gateway/internal/registry/migrate"
	registryroute "github.com/onlymatt/gateway/internal/registry/route"
	registrystore "github.com/onlymatt/gateway/internal/registry/store"
	"github.com/onlymatt/gateway/internal/security"
	"github.com/onlymatt/gateway/internal/service"
)

// Server holds the running HTTP server and its subsystems.
type Server struct {
	Config     *config.Config
	Store      registrystore.GatewayStore
	Router     *gin.Engine
	httpServer *http.Server
}

// Shutdown gracefully drains and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// StartServer initializes all subsystems and starts serving HTTP.
func StartServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	log.Info("Starting gateway",
		"port", cfg.Port,
		"db", cfg.DatastoreType,
		"cache", cfg.CacheType,
		"chat", cfg.ChatType,
	)

	// Initialize Prometheus metrics with configured constant labels.
	metricsLabels, err := security.ParseMetricsLabels(cfg.MetricsLabels)
	if err != nil {
		return nil, fmt.Errorf("invalid --metrics-labels: %w", err)
	}
	security.InitMetrics(metricsLabels)

	// Run migrations
	if err := registrymigrate.RunAll(ctx); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	// Initialize the recall cache. A broken cache degrades to uncached
	// recalls instead of blocking startup.
	var recallCache registrycache.RecallCache
	if cacheLoader, err := registrycache.Select(cfg.CacheType); err != nil {
		log.Warn("Cache not available", "cache", cfg.CacheType, "err", err)
	} else if recallCache, err = cacheLoader(ctx); err != nil {
		log.Warn("Failed to initialize cache", "cache", cfg.CacheType, "err", err)
		recallCache = nil
	}

	// Initialize store
	storeLoader, err := registrystore.Select(cfg.DatastoreType)
	if err != nil {
		return nil, err
	}
	store, err := storeLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	// Initialize chat provider
	chatLoader, err := registrychat.Select(cfg.ChatType)
	if err != nil {
		return nil, err
	}
	completer, err := chatLoader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}

	// File explorer is optional; without a root the files endpoint and
	// folder reports reject requests.
	var exp *explorer.Explorer
	if cfg.FilesRoot != "" {
		exp = explorer.New(cfg.FilesRoot, cfg.FilesMaxResults)
	}
	generator := report.NewGenerator(store, exp)

	router, err := buildRouter(cfg, store, recallCache, completer, exp, generator)
	if err != nil {
		return nil, err
	}

	// Start background sweeps.
	sweeper := service.NewSweeper(store, cfg.SweepInterval, cfg.ReportRetention)
	go sweeper.Start(ctx)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", "err", err)
		}
	}()

	routesystem.MarkReady()
	log.Info("Gateway ready", "addr", httpServer.Addr)

	return &Server{
		Config:     cfg,
		Store:      store,
		Router:     router,
		httpServer: httpServer,
	}, nil
}

// buildRouter assembles the gin engine with all middleware and routes.
func buildRouter(cfg *config.Config, store registrystore.GatewayStore, recallCache registrycache.RecallCache, completer registrychat.Completer, exp *explorer.Explorer, generator *report.Generator) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(security.AccessLogMiddleware("/health", "/ready", "/metrics"))
	router.Use(security.MetricsMiddleware())
	router.Use(maxBodySizeMiddleware(cfg.MaxBodySize))
	if cfg.CORSEnabled {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}

	// System route plugins (health, ready, metrics).
	for _, loader := range registryroute.Loaders() {
		if err := loader(router); err != nil {
			return nil, fmt.Errorf("failed to load routes: %w", err)
		}
	}

	auth := security.AdminKeyMiddleware(security.NewStaticKeyVerifier(cfg.AdminKey))

	aichat.MountRoutes(router, completer, cfg)
	memories.MountRoutes(router, store, recallCache, cfg)
	files.MountRoutes(router, exp, auth)
	tasks.MountRoutes(router, store, auth)
	reports.MountRoutes(router, store, generator, cfg, auth)
	chathistory.MountRoutes(router, store, auth)

	return router, nil
}
