package relational

import (
	"fmt"
	"strings"
	"time"
)

// Dialect captures the handful of differences between the two relational
// backends: placeholder syntax, date encoding, returning-clause support and
// unique-violation detection. Everything else in the engine is shared.
type Dialect interface {
	// Name is the goose dialect name ("sqlite3" or "postgres").
	Name() string

	// Rebind rewrites '?' placeholders into the backend's native syntax.
	Rebind(query string) string

	// EncodeTime converts a timestamp into the backend's column
	// representation (ISO-8601 text for SQLite, native timestamp for
	// PostgreSQL). Decoding is shared; see scanTime.
	EncodeTime(t time.Time) any

	// EncodeNullTime encodes an optional timestamp, mapping nil to NULL.
	EncodeNullTime(t *time.Time) any

	// SupportsReturning reports whether INSERT ... RETURNING id works and
	// should be preferred over LastInsertId.
	SupportsReturning() bool

	// DateExpr returns the SQL expression yielding the UTC calendar date
	// (YYYY-MM-DD) of a timestamp column, used for per-day report buckets.
	DateExpr(column string) string

	// IsUniqueViolation reports whether err is a unique-constraint
	// violation, so the engine can surface it as a Conflict instead of a
	// generic storage failure.
	IsUniqueViolation(err error) bool
}

// rebindNumbered rewrites '?' into $1..$n. Shared by the postgres dialect;
// SQLite takes '?' natively.
func rebindNumbered(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
