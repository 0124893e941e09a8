package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/onlymatt/gateway/internal/cmd/migrate"
	"github.com/onlymatt/gateway/internal/cmd/serve"
	"github.com/urfave/cli/v3"
)

func main() {
	// Optional .env for local development; ignored when absent.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "om-gateway",
		Usage: "ONLYMATT AI gateway for chat, memory, tasks, and reports",
		Commands: []*cli.Command{
			serve.Command(),
			migrate.Command(),
		},
	}
	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
