package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// SQLSTATE class 23: integrity constraint violations.
const pgUniqueViolation = "23505"

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Rebind(query string) string { return rebindNumbered(query) }

func (postgresDialect) EncodeTime(t time.Time) any { return t.UTC() }

func (postgresDialect) EncodeNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func (postgresDialect) SupportsReturning() bool { return true }

func (postgresDialect) DateExpr(column string) string {
	return "to_char(" + column + " AT TIME ZONE 'UTC', 'YYYY-MM-DD')"
}

func (postgresDialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// PostgresConfig holds the pooled connection settings for the networked
// store.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenPostgres opens a pooled connection to the networked store and
// bootstraps its schema.
func OpenPostgres(ctx context.Context, cfg PostgresConfig, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store, err := newStore(ctx, db, postgresDialect{}, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("Opened networked postgres store")
	return store, nil
}
