package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	sqlite "modernc.org/sqlite"
)

// SQLite constraint codes (SQLITE_CONSTRAINT_UNIQUE / _PRIMARYKEY).
const (
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
)

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite3" }

func (sqliteDialect) Rebind(query string) string { return query }

// SQLite has no native timestamp type; dates are stored as ISO-8601 text
// and decoded back by scanTime so callers never see the encoding. The
// fractional part is fixed-width so lexicographic comparison of stored
// values matches chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (sqliteDialect) EncodeTime(t time.Time) any {
	return t.UTC().Format(sqliteTimeLayout)
}

func (d sqliteDialect) EncodeNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.EncodeTime(*t)
}

func (sqliteDialect) SupportsReturning() bool { return false }

func (sqliteDialect) DateExpr(column string) string {
	return "substr(" + column + ", 1, 10)"
}

func (sqliteDialect) IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqliteConstraintUnique || code == sqliteConstraintPrimaryKey
	}
	return false
}

// OpenSQLite opens the embedded file-backed store and bootstraps its
// schema. SQLite allows a single writer per database file, so the pool is
// pinned to one connection; that also serializes the sale transaction.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store, err := newStore(ctx, db, sqliteDialect{}, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("Opened embedded sqlite store", zap.String("path", path))
	return store, nil
}
