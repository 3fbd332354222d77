package relational

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// goose keeps dialect and base FS as package state.
var migrateMu sync.Mutex

// bootstrapSchema runs all pending migrations for the dialect. Goose tracks
// applied versions in its own table, so this is idempotent: tables and
// indexes are created only if absent.
func bootstrapSchema(db *sql.DB, d Dialect, logger *zap.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(d.Name()); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	dir := "migrations/postgres"
	if d.Name() == "sqlite3" {
		dir = "migrations/sqlite"
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("Schema bootstrap completed", zap.String("dialect", d.Name()))
	return nil
}
