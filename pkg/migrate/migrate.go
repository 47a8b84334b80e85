package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
)

const DefaultDir = "pkg/migrate/migrations"

// sqliteSchema is the single-file schema used by local sqlite runs and tests.
//
//go:embed sqlite/*.sql
var sqliteSchema embed.FS

func newProvider(db *sql.DB, dialect goose.Dialect, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

// Run executes a goose command against the Postgres migrations in dir.
func Run(ctx context.Context, logg *logger.Logger, db *sql.DB, dir string, command string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	provider, err := newProvider(db, goose.DialectPostgres, os.DirFS(dir))
	if err != nil {
		return err
	}

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		logResults(ctx, logg, results...)
		if err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
	case "down":
		result, err := provider.Down(ctx)
		if result != nil {
			logResults(ctx, logg, result)
		}
		if err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("goose status: %w", err)
		}
		for _, status := range statuses {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"version":    status.Source.Version,
				"path":       status.Source.Path,
				"state":      string(status.State),
				"applied_at": status.AppliedAt,
			}), "migration status")
		}
	default:
		return fmt.Errorf("unsupported goose command %q", command)
	}
	return nil
}

// MigrateToVersion moves the Postgres schema up or down to targetVersion.
func MigrateToVersion(ctx context.Context, logg *logger.Logger, db *sql.DB, dir string, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	provider, err := newProvider(db, goose.DialectPostgres, os.DirFS(dir))
	if err != nil {
		return err
	}
	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil
	case current < target:
		results, err = provider.UpTo(ctx, target)
	default:
		results, err = provider.DownTo(ctx, target)
	}
	logResults(ctx, logg, results...)
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

// ApplySQLiteSchema brings a sqlite database up to the embedded schema.
// Applying it twice is a no-op.
func ApplySQLiteSchema(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(sqliteSchema, "sqlite")
	if err != nil {
		return fmt.Errorf("sqlite schema: %w", err)
	}
	provider, err := newProvider(db, goose.DialectSQLite3, fsys)
	if err != nil {
		return err
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up (sqlite): %w", err)
	}
	return nil
}

func logResults(ctx context.Context, logg *logger.Logger, results ...*goose.MigrationResult) {
	if logg == nil {
		return
	}
	for _, result := range results {
		if result == nil || result.Source == nil {
			continue
		}
		fields := map[string]any{
			"version":   result.Source.Version,
			"path":      result.Source.Path,
			"direction": result.Direction,
			"duration":  result.Duration.String(),
		}
		if result.Error != nil {
			logg.Error(logg.WithFields(ctx, fields), "migration failed", result.Error)
			continue
		}
		logg.Info(logg.WithFields(ctx, fields), "migration applied")
	}
}
