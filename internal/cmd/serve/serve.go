package serve

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/onlymatt/gateway/internal/config"
	"github.com/urfave/cli/v3"

	// Import all plugins to trigger init() registration
	_ "github.com/onlymatt/gateway/internal/plugin/cache/noop"
	_ "github.com/onlymatt/gateway/internal/plugin/cache/redis"
	_ "github.com/onlymatt/gateway/internal/plugin/chat/disabled"
	_ "github.com/onlymatt/gateway/internal/plugin/chat/ollama"
	_ "github.com/onlymatt/gateway/internal/plugin/chat/openai"
	_ "github.com/onlymatt/gateway/internal/plugin/route/system"
	_ "github.com/onlymatt/gateway/internal/plugin/store/postgres"
	_ "github.com/onlymatt/gateway/internal/plugin/store/sqlite"
)

// Command returns the serve sub-command.
func Command() *cli.Command {
	cfg := config.DefaultConfig()
	var readHeaderTimeoutSecs int = 5
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the gateway HTTP server",
		Flags: flags(&cfg, &readHeaderTimeoutSecs),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg.ReadHeaderTimeout = time.Duration(readHeaderTimeoutSecs) * time.Second
			return run(config.WithContext(ctx, &cfg), cfg)
		},
	}
}

func flags(cfg *config.Config, readHeaderTimeoutSecs *int) []cli.Flag {
	return []cli.Flag{

		// ── Server ────────────────────────────────────────────────
		&cli.IntFlag{
			Name:        "port",
			Category:    "Server:",
			Sources:     cli.EnvVars("OM_GATEWAY_PORT"),
			Destination: &cfg.Port,
			Value:       cfg.Port,
			Usage:       "HTTP server port",
		},
		&cli.IntFlag{
			Name:        "read-header-timeout-seconds",
			Category:    "Server:",
			Sources:     cli.EnvVars("OM_GATEWAY_READ_HEADER_TIMEOUT_SECONDS"),
			Destination: readHeaderTimeoutSecs,
			Value:       *readHeaderTimeoutSecs,
			Usage:       "HTTP read header timeout in seconds",
		},
		&cli.BoolFlag{
			Name:        "cors",
			Category:    "Server:",
			Sources:     cli.EnvVars("OM_GATEWAY_CORS"),
			Destination: &cfg.CORSEnabled,
			Value:       cfg.CORSEnabled,
			Usage:       "Enable CORS handling",
		},
		&cli.StringFlag{
			Name:        "cors-origins",
			Category:    "Server:",
			Sources:     cli.EnvVars("OM_GATEWAY_CORS_ORIGINS"),
			Destination: &cfg.CORSOrigins,
			Usage:       "Comma-separated allowed CORS origins; empty allows any",
		},
		&cli.IntFlag{
			Name:        "drain-timeout-seconds",
			Category:    "Server:",
			Sources:     cli.EnvVars("OM_GATEWAY_DRAIN_TIMEOUT_SECONDS"),
			Destination: &cfg.DrainTimeout,
			Value:       cfg.DrainTimeout,
			Usage:       "Seconds to wait for in-flight requests on shutdown",
		},
		&cli.StringFlag{
			Name:        "metrics-labels",
			Category:    "Server:",
			Sources:     cli.EnvVars("OM_GATEWAY_METRICS_LABELS"),
			Destination: &cfg.MetricsLabels,
			Value:       "service=om-gateway",
			Usage:       "Comma-separated key=value pairs added as constant labels to all Prometheus metrics. Supports ${VAR} expansion.",
		},

		// ── Security ──────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "admin-key",
			Category:    "Security:",
			Sources:     cli.EnvVars("OM_GATEWAY_ADMIN_KEY"),
			Destination: &cfg.AdminKey,
			Usage:       "Shared secret required in the X-OM-Key header on admin routes; empty rejects all admin requests",
		},

		// ── Datastore ─────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "db-kind",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("OM_GATEWAY_DB_KIND"),
			Destination: &cfg.DatastoreType,
			Value:       cfg.DatastoreType,
			Usage:       "Store backend (sqlite|postgres)",
		},
		&cli.StringFlag{
			Name:        "db-url",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("OM_GATEWAY_DB_URL"),
			Destination: &cfg.DBURL,
			Usage:       "Database connection URL (postgres) or DSN (sqlite)",
		},
		&cli.BoolFlag{
			Name:        "db-migrate-at-start",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("OM_GATEWAY_DB_MIGRATE_AT_START"),
			Destination: &cfg.DatastoreMigrateAtStart,
			Value:       cfg.DatastoreMigrateAtStart,
			Usage:       "Run schema migrations on startup",
		},
		&cli.IntFlag{
			Name:        "db-max-open-conns",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("OM_GATEWAY_DB_MAX_OPEN_CONNS"),
			Destination: &cfg.DBMaxOpenConns,
			Value:       cfg.DBMaxOpenConns,
			Usage:       "Maximum open database connections",
		},
		&cli.IntFlag{
			Name:        "db-max-idle-conns",
			Category:    "Datastore:",
			Sources:     cli.EnvVars("OM_GATEWAY_DB_MAX_IDLE_CONNS"),
			Destination: &cfg.DBMaxIdleConns,
			Value:       cfg.DBMaxIdleConns,
			Usage:       "Maximum idle database connections",
		},

		// ── Cache ─────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "cache-kind",
			Category:    "Cache:",
			Sources:     cli.EnvVars("OM_GATEWAY_CACHE_KIND"),
			Destination: &cfg.CacheType,
			Value:       cfg.CacheType,
			Usage:       "Recall cache backend (redis|none)",
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Category:    "Cache:",
			Sources:     cli.EnvVars("OM_GATEWAY_REDIS_URL"),
			Destination: &cfg.RedisURL,
			Usage:       "Redis connection URL for the recall cache",
		},
		&cli.DurationFlag{
			Name:        "recall-cache-ttl",
			Category:    "Cache:",
			Sources:     cli.EnvVars("OM_GATEWAY_RECALL_CACHE_TTL"),
			Destination: &cfg.RecallCacheTTL,
			Value:       cfg.RecallCacheTTL,
			Usage:       "How long cached recall results stay valid",
		},

		// ── Chat ──────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "chat-kind",
			Category:    "Chat:",
			Sources:     cli.EnvVars("OM_GATEWAY_CHAT_KIND"),
			Destination: &cfg.ChatType,
			Value:       cfg.ChatType,
			Usage:       "Chat provider (openai|ollama|disabled); openai covers any OpenAI-compatible API",
		},
		&cli.StringFlag{
			Name:        "chat-base-url",
			Category:    "Chat:",
			Sources:     cli.EnvVars("OM_GATEWAY_CHAT_BASE_URL"),
			Destination: &cfg.ChatBaseURL,
			Usage:       "Upstream base URL (e.g. https://api.groq.com/openai/v1 or http://localhost:11434)",
		},
		&cli.StringFlag{
			Name:        "chat-api-key",
			Category:    "Chat:",
			Sources:     cli.EnvVars("OM_GATEWAY_CHAT_API_KEY"),
			Destination: &cfg.ChatAPIKey,
			Usage:       "API key for the chat provider",
		},
		&cli.StringFlag{
			Name:        "chat-model",
			Category:    "Chat:",
			Sources:     cli.EnvVars("OM_GATEWAY_CHAT_MODEL"),
			Destination: &cfg.ChatModel,
			Usage:       "Default model when a request omits one",
		},
		&cli.DurationFlag{
			Name:        "chat-timeout",
			Category:    "Chat:",
			Sources:     cli.EnvVars("OM_GATEWAY_CHAT_TIMEOUT"),
			Destination: &cfg.ChatTimeout,
			Value:       cfg.ChatTimeout,
			Usage:       "Per-attempt timeout for upstream chat calls",
		},

		// ── Files ─────────────────────────────────────────────────
		&cli.StringFlag{
			Name:        "files-root",
			Category:    "Files:",
			Sources:     cli.EnvVars("OM_GATEWAY_FILES_ROOT"),
			Destination: &cfg.FilesRoot,
			Usage:       "Root directory served by the file explorer; empty disables it",
		},
		&cli.IntFlag{
			Name:        "files-max-results",
			Category:    "Files:",
			Sources:     cli.EnvVars("OM_GATEWAY_FILES_MAX_RESULTS"),
			Destination: &cfg.FilesMaxResults,
			Value:       cfg.FilesMaxResults,
			Usage:       "Maximum entries in a single file listing",
		},

		// ── Housekeeping ──────────────────────────────────────────
		&cli.IntFlag{
			Name:        "report-retention",
			Category:    "Housekeeping:",
			Sources:     cli.EnvVars("OM_GATEWAY_REPORT_RETENTION"),
			Destination: &cfg.ReportRetention,
			Value:       cfg.ReportRetention,
			Usage:       "How many reports to keep (0 keeps all)",
		},
		&cli.DurationFlag{
			Name:        "sweep-interval",
			Category:    "Housekeeping:",
			Sources:     cli.EnvVars("OM_GATEWAY_SWEEP_INTERVAL"),
			Destination: &cfg.SweepInterval,
			Value:       cfg.SweepInterval,
			Usage:       "Interval between expired-memory and report-retention sweeps",
		},
	}
}

func run(ctx context.Context, cfg config.Config) error {
	srv, err := StartServer(ctx, &cfg)
	if err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	drainCtx, drainCancel := context.WithTimeout(context.Background(), time.Duration(cfg.DrainTimeout)*time.Second)
	defer drainCancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error("Shutdown error", "err", err)
	}
	log.Info("Server stopped")
	return nil
}

func maxBodySizeMiddleware(maxBodySize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
		c.Next()
	}
}
