// Package sqldb implements db.Source for embedded SQL engines accessed through database/sql.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"hermannm.dev/devlog/log"
	"hermannm.dev/safetab/dataset"
	"hermannm.dev/safetab/db"
	"hermannm.dev/wrap"
)

type Options struct {
	// Name of the database engine, used in error messages.
	Name string
	// Allows table names such as read_parquet('data.parquet') to be passed through unquoted.
	AllowTableFunctions bool
	// Zero means no limit.
	MaxOpenConns int
	// Reports whether a query error means the table does not exist. The driver's error types
	// differ, so each engine supplies its own check.
	IsTableNotFound func(err error) bool
}

// Implements db.Source for a database/sql driver.
type SQLDB struct {
	db      *sql.DB
	options Options
}

func Open(ctx context.Context, driverName string, dsn string, options Options) (SQLDB, error) {
	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return SQLDB{}, wrap.Errorf(err, "failed to open %s database", options.Name)
	}

	conn.SetMaxOpenConns(options.MaxOpenConns)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return SQLDB{}, wrap.Errorf(err, "failed to connect to %s database", options.Name)
	}

	return SQLDB{db: conn, options: options}, nil
}

// DB exposes the underlying connection pool, for setting up tables.
func (sqlDB SQLDB) DB() *sql.DB {
	return sqlDB.db
}

func (sqlDB SQLDB) LoadDataset(ctx context.Context, table string) (*dataset.Dataset, error) {
	source, err := sqlDB.tableSource(table)
	if err != nil {
		return nil, wrap.Error(err, "invalid table name")
	}

	log.Debug("loading table", slog.String("database", sqlDB.options.Name), slog.String("table", source))

	rows, err := sqlDB.db.QueryContext(ctx, "SELECT * FROM "+source)
	if err != nil {
		if sqlDB.options.IsTableNotFound != nil && sqlDB.options.IsTableNotFound(err) {
			err = fmt.Errorf("%w: %w", db.ErrTableNotFound, err)
		}
		return nil, wrap.Errorf(err, "failed to query %s table '%s'", sqlDB.options.Name, table)
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, wrap.Error(err, "failed to get column types")
	}

	schema := dataset.Schema{Columns: make([]dataset.ColumnDescriptor, len(columnTypes))}
	for i, columnType := range columnTypes {
		schema.Columns[i] = dataset.ColumnDescriptor{
			Name: columnType.Name(),
			Kind: db.KindFromTypeName(columnType.DatabaseTypeName()),
		}
	}

	builder, err := dataset.NewBuilder(schema)
	if err != nil {
		return nil, wrap.Errorf(err, "unsupported schema for table '%s'", table)
	}
	defer builder.Release()

	values := make([]any, len(columnTypes))
	pointers := make([]any, len(columnTypes))
	for i := range values {
		pointers[i] = &values[i]
	}

	rowNumber := 0
	for rows.Next() {
		rowNumber++
		if err := rows.Scan(pointers...); err != nil {
			return nil, wrap.Errorf(err, "failed to scan row %d", rowNumber)
		}

		for i, value := range values {
			if err := db.AppendValue(builder, i, value); err != nil {
				return nil, wrap.Errorf(
					err, "invalid value in column '%s' of row %d", schema.Columns[i].Name, rowNumber,
				)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrap.Errorf(err, "failed to read rows of table '%s'", table)
	}

	return builder.Build()
}

func (sqlDB SQLDB) Close() error {
	return sqlDB.db.Close()
}

func (sqlDB SQLDB) tableSource(table string) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", errors.New("table name is blank")
	}

	if sqlDB.options.AllowTableFunctions && strings.Contains(table, "(") {
		return table, nil
	}

	if strings.ContainsAny(table, "\"`") {
		return "", fmt.Errorf("'%s' contains \" or `, which is incompatible with database", table)
	}

	return `"` + table + `"`, nil
}
