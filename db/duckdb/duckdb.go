package duckdb

import (
	"context"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"hermannm.dev/safetab/config"
	"hermannm.dev/safetab/db/sqldb"
)

// New opens a DuckDB database at the configured DSN (in-memory if empty). Table names may be
// DuckDB table functions, such as read_csv('data.csv') or read_parquet('data.parquet').
func New(ctx context.Context, config config.SQL) (sqldb.SQLDB, error) {
	return sqldb.Open(ctx, "duckdb", config.DSN, sqldb.Options{
		Name:                "DuckDB",
		AllowTableFunctions: true,
		IsTableNotFound: func(err error) bool {
			return strings.Contains(err.Error(), "Catalog Error: Table with name")
		},
	})
}
