package sqlite

import (
	"context"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"hermannm.dev/safetab/config"
	"hermannm.dev/safetab/db/sqldb"
)

// New opens the SQLite database file at the configured DSN. Connections are limited to one,
// since SQLite allows a single writer and in-memory databases are per connection.
func New(ctx context.Context, config config.SQL) (sqldb.SQLDB, error) {
	return sqldb.Open(ctx, "sqlite3", config.DSN, sqldb.Options{
		Name:         "SQLite",
		MaxOpenConns: 1,
		IsTableNotFound: func(err error) bool {
			return strings.Contains(err.Error(), "no such table")
		},
	})
}
