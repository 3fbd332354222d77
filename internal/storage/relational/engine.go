// Package relational implements the storage contract once over
// database/sql, parameterized by a small Dialect so the embedded SQLite
// store and the networked PostgreSQL store share all query logic instead of
// duplicating it.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stockroom/internal/storage"
)

// Store is the shared relational engine. It satisfies storage.Adapter for
// whichever dialect it was opened with.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger

	nowFn func() time.Time
}

func newStore(ctx context.Context, db *sql.DB, d Dialect, logger *zap.Logger) (*Store, error) {
	if err := bootstrapSchema(db, d, logger); err != nil {
		return nil, err
	}
	return &Store{
		db:      db,
		dialect: d,
		logger:  logger,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) now() time.Time { return s.nowFn() }

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storage.NewInternal(fmt.Errorf("ping failed: %w", err))
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// querier is satisfied by both *sql.DB and *sql.Tx so shared helpers work
// inside and outside transactions.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertID runs an INSERT and returns the generated id, via RETURNING where
// the dialect supports it and LastInsertId otherwise.
func (s *Store) insertID(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	if s.dialect.SupportsReturning() {
		var id int64
		err := q.QueryRowContext(ctx, s.dialect.Rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	res, err := q.ExecContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// scanTime decodes a timestamp column regardless of how the dialect encoded
// it (native timestamp or ISO-8601 text). Values always come back UTC, so
// callers never observe the backend's encoding.
type scanTime struct {
	t *time.Time
}

func (s scanTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s.t = time.Time{}
		return nil
	case time.Time:
		*s.t = v.UTC()
		return nil
	case string:
		return s.parse(v)
	case []byte:
		return s.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into time.Time", src)
	}
}

func (s scanTime) parse(v string) error {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return fmt.Errorf("invalid stored timestamp %q: %w", v, err)
	}
	*s.t = t.UTC()
	return nil
}

// scanNullTime is scanTime for nullable columns.
type scanNullTime struct {
	t **time.Time
}

func (s scanNullTime) Scan(src any) error {
	if src == nil {
		*s.t = nil
		return nil
	}
	var t time.Time
	if err := (scanTime{t: &t}).Scan(src); err != nil {
		return err
	}
	*s.t = &t
	return nil
}
