package main

import (
	"context"
	"embed"
	"log/slog"
	"os"

	"github.com/ghuser/appkit/pkg/config"
	"github.com/ghuser/appkit/pkg/logger"
	"github.com/ghuser/appkit/pkg/migrator"
)

//go:embed *.sql
var MigrationsFS embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg)
	// Code logging through the default slog logger shares the JSON format.
	slog.SetDefault(log.ToSlog())
	if err := migrator.RunMigrations(context.Background(), cfg.DatabaseURL, MigrationsFS, log); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}
}
