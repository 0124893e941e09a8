package migrate

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/onlymatt/gateway/internal/config"
	registrymigrate "github.com/onlymatt/gateway/internal/registry/migrate"
	"github.com/urfave/cli/v3"

	// Import store plugins to trigger init() registration of their
	// migrators.
	_ "github.com/onlymatt/gateway/internal/plugin/store/postgres"
	_ "github.com/onlymatt/gateway/internal/plugin/store/sqlite"
)

// Command returns the migrate sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-kind",
				Sources: cli.EnvVars("OM_GATEWAY_DB_KIND"),
				Usage:   "Store backend (sqlite|postgres)",
				Value:   "sqlite",
			},
			&cli.StringFlag{
				Name:    "db-url",
				Sources: cli.EnvVars("OM_GATEWAY_DB_URL"),
				Usage:   "Database connection URL (postgres) or DSN (sqlite)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.DefaultConfig()
			cfg.DatastoreType = cmd.String("db-kind")
			cfg.DBURL = cmd.String("db-url")
			ctx = config.WithContext(ctx, &cfg)

			log.Info("Running migrations...")
			if err := registrymigrate.RunAll(ctx); err != nil {
				return err
			}
			log.Info("All migrations completed successfully")
			return nil
		},
	}
}
