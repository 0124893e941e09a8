package config

import (
	"context"
	"time"
)

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

// Config holds all configuration for the gateway.
type Config struct {
	// Database
	DBURL         string
	DatastoreType string // "postgres" or "sqlite"

	// Run datastore migrations on startup.
	DatastoreMigrateAtStart bool

	// DB pool
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Cache backend type
	CacheType string // "redis" or "none"

	// Redis
	RedisURL string

	// Recall result cache TTL.
	RecallCacheTTL time.Duration

	// Chat provider
	ChatType    string // "openai", "ollama", or "disabled"
	ChatBaseURL string
	ChatAPIKey  string
	ChatModel   string // default model when the request omits one

	// Upstream chat call timeout. Calls past this surface a retryable
	// upstream error rather than hanging the client.
	ChatTimeout time.Duration

	// AdminKey is the shared secret expected in the X-OM-Key header on
	// privileged routes.
	AdminKey string

	// File explorer
	FilesRoot       string
	FilesMaxResults int

	// ReportRetention caps how many reports are kept; 0 keeps all.
	ReportRetention int

	// Background sweep interval (expired memories, report retention).
	SweepInterval time.Duration

	// Server
	Port              int
	ReadHeaderTimeout time.Duration
	CORSEnabled       bool
	CORSOrigins       string

	// Body size limit (bytes)
	MaxBodySize int64

	// Graceful shutdown drain timeout (seconds)
	DrainTimeout int

	// MetricsLabels is a comma-separated list of key=value pairs added as
	// constant labels to all Prometheus metrics. Values support ${VAR}
	// expansion. Defaults to "service=om-gateway".
	MetricsLabels string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DatastoreType:           "sqlite",
		DatastoreMigrateAtStart: true,
		DBMaxOpenConns:          25,
		DBMaxIdleConns:          5,
		CacheType:               "none",
		RecallCacheTTL:          10 * time.Minute,
		ChatType:                "disabled",
		ChatTimeout:             10 * time.Second,
		FilesMaxResults:         200,
		SweepInterval:           time.Hour,
		Port:                    5059,
		ReadHeaderTimeout:       5 * time.Second,
		MaxBodySize:             1 * 1024 * 1024, // 1 MB
		DrainTimeout:            30,
	}
}
