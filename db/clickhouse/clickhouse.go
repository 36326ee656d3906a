package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"hermannm.dev/devlog/log"
	"hermannm.dev/safetab/config"
	"hermannm.dev/safetab/dataset"
	"hermannm.dev/safetab/db"
	"hermannm.dev/wrap"
)

// Implements db.Source for ClickHouse.
type ClickHouseDB struct {
	conn driver.Conn
}

func NewClickHouseDB(ctx context.Context, config config.ClickHouse) (ClickHouseDB, error) {
	// Options docs: https://clickhouse.com/docs/en/integrations/go#connection-settings
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{config.Address},
		Auth: clickhouse.Auth{
			Database: config.DatabaseName,
			Username: config.Username,
			Password: config.Password,
		},
		Debug: config.Debug,
		Debugf: func(format string, v ...any) {
			log.Debugf(format, v...)
		},
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
	})
	if err != nil {
		return ClickHouseDB{}, wrap.Error(err, "failed to connect to ClickHouse")
	}

	if err := conn.Ping(ctx); err != nil {
		return ClickHouseDB{}, wrap.Error(err, "failed to ping ClickHouse connection")
	}

	return ClickHouseDB{conn: conn}, nil
}

// LoadDataset reads every row of the given table. Integer, float and decimal columns become
// numeric, all other columns categorical.
func (clickhouse ClickHouseDB) LoadDataset(
	ctx context.Context,
	table string,
) (*dataset.Dataset, error) {
	if err := ValidateIdentifier(table); err != nil {
		return nil, wrap.Error(err, "invalid table name")
	}

	var query QueryBuilder
	query.WriteString("SELECT * FROM ")
	query.WriteIdentifier(table)

	rows, err := clickhouse.conn.Query(ctx, query.String())
	if err != nil {
		return nil, wrap.Errorf(
			classifyQueryError(err), "failed to query ClickHouse table '%s'", table,
		)
	}
	defer rows.Close()

	columnTypes := rows.ColumnTypes()
	schema := dataset.Schema{Columns: make([]dataset.ColumnDescriptor, len(columnTypes))}
	for i, columnType := range columnTypes {
		schema.Columns[i] = dataset.ColumnDescriptor{
			Name: columnType.Name(),
			Kind: db.KindFromTypeName(columnType.DatabaseTypeName()),
		}
	}

	builder, err := dataset.NewBuilder(schema)
	if err != nil {
		return nil, wrap.Errorf(err, "unsupported schema for ClickHouse table '%s'", table)
	}
	defer builder.Release()

	// Scans into pointers to each column's own Go type, since the driver does not convert.
	values := make([]any, len(columnTypes))
	for i, columnType := range columnTypes {
		values[i] = reflect.New(columnType.ScanType()).Interface()
	}

	rowNumber := 0
	for rows.Next() {
		rowNumber++
		if err := rows.Scan(values...); err != nil {
			return nil, wrap.Errorf(err, "failed to scan row %d of ClickHouse table", rowNumber)
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
		return nil, wrap.Errorf(err, "failed to read rows of ClickHouse table '%s'", table)
	}

	return builder.Build()
}

func (clickhouse ClickHouseDB) Close() error {
	return clickhouse.conn.Close()
}

// ClickHouse exception codes, from src/Common/ErrorCodes.cpp in the ClickHouse repo.
const (
	unknownTableCode    = 60
	unknownDatabaseCode = 81
)

func classifyQueryError(err error) error {
	var exception *clickhouse.Exception
	if errors.As(err, &exception) &&
		(exception.Code == unknownTableCode || exception.Code == unknownDatabaseCode) {
		return fmt.Errorf("%w: %w", db.ErrTableNotFound, err)
	}
	return err
}
