// Package sqlite provides the embedded single-file store backend. It is
// the default for local and single-node deployments; postgres covers
// everything else.
package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/onlymatt/gateway/internal/config"
	"github.com/onlymatt/gateway/internal/model"
	"github.com/onlymatt/gateway/internal/plugin/store/gormstore"
	registrymigrate "github.com/onlymatt/gateway/internal/registry/migrate"
	registrystore "github.com/onlymatt/gateway/internal/registry/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DefaultDSN enables WAL so concurrent readers don't block on the writer.
const DefaultDSN = "file:om-gateway.db?_busy_timeout=5000&_journal_mode=WAL"

func init() {
	registrystore.Register(registrystore.Plugin{
		Name: "sqlite",
		Loader: func(ctx context.Context) (registrystore.GatewayStore, error) {
			cfg := config.FromContext(ctx)
			db, err := open(cfg)
			if err != nil {
				return nil, err
			}
			return gormstore.New(db, isConflict), nil
		},
	})

	registrymigrate.Register(registrymigrate.Plugin{Order: 100, Migrator: &sqliteMigrator{}})
}

func open(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.DBURL
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying db: %w", err)
	}
	// SQLite serializes writes; a single connection avoids SQLITE_BUSY
	// churn under concurrent upserts.
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func isConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

type sqliteMigrator struct{}

func (m *sqliteMigrator) Name() string { return "sqlite-schema" }
func (m *sqliteMigrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return fmt.Errorf("migration: no configuration in context")
	}
	if !cfg.DatastoreMigrateAtStart {
		return nil
	}
	if cfg.DatastoreType != "" && cfg.DatastoreType != "sqlite" {
		return nil // skip if not using sqlite
	}
	log.Info("Running migration", "name", m.Name())
	db, err := open(cfg)
	if err != nil {
		return fmt.Errorf("migration: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := Migrate(db); err != nil {
		return err
	}
	log.Info("SQLite schema migration complete")
	return nil
}

// Migrate creates or updates the schema on the given handle. Exposed so
// tests can prepare an in-memory database without the plugin registry.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Memory{},
		&model.Task{},
		&model.Report{},
		&model.ChatExchange{},
	)
	if err != nil {
		return fmt.Errorf("migration: failed to auto-migrate schema: %w", err)
	}
	return nil
}
