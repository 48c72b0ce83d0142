package database

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// Dialect abstracts the differences between the supported SQL backends.
// Repositories write queries with ? placeholders; the dialect rewrites them
// where the backend wants numbered parameters.
type Dialect interface {
	// DriverName is the registered driver passed to sql.Open
	DriverName() string

	// DSN builds the connection string from the dialect config
	DSN(cfg DialectConfig) string

	// RewriteQuery translates placeholder syntax for the backend
	RewriteQuery(query string) string

	// ConfigureConnection applies backend-specific session and pool settings
	ConfigureConnection(db *sql.DB) error

	// CreateMigrationsTableQuery returns the DDL for the migration ledger
	CreateMigrationsTableQuery() string
}

// DialectConfig carries the connection parameters a dialect may need.
// SQLite reads Path; the server backends read URL.
type DialectConfig struct {
	Path string
	URL  string
}

func tunePool(db *sql.DB) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)
}

// numberPlaceholders rewrites each ? into $1, $2, ... in order of
// appearance. Queries never embed literal question marks, so a straight
// scan is enough.
func numberPlaceholders(query string) string {
	if !strings.ContainsRune(query, '?') {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
