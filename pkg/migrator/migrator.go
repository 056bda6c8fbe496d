// Package migrator applies goose migrations from an embedded filesystem.
package migrator

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/ghuser/appkit/pkg/database"
	"github.com/ghuser/appkit/pkg/logger"
)

// RunMigrations applies all pending migrations in files against dbURL.
func RunMigrations(ctx context.Context, dbURL string, files fs.FS, log logger.Logger) error {
	db, err := database.NewPool(ctx, dbURL, log)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck
	return Up(ctx, db.DB(), files, log)
}

// Up applies pending migrations on an open connection.
func Up(ctx context.Context, db *sql.DB, files fs.FS, log logger.Logger) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, files)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("up migrations: %w", err)
	}
	for _, r := range results {
		log.InfoContext(ctx, "migration applied",
			"version", r.Source.Version,
			"file", r.Source.Path,
			"duration", r.Duration,
		)
	}
	return nil
}
