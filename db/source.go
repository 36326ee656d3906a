// Package db loads datasets from external databases. Each backend lives in its own package and
// implements Source.
package db

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hermannm.dev/safetab/dataset"
)

// Returned (wrapped) by sources when the requested table or index does not exist.
var ErrTableNotFound = errors.New("table not found")

// Source loads a whole table (or index) from a database as a dataset.
type Source interface {
	LoadDataset(ctx context.Context, table string) (*dataset.Dataset, error)
	Close() error
}

// KindFromTypeName maps a database column type name to a column kind: integer, floating-point
// and decimal types are numeric, everything else is categorical. Case-insensitive, and
// Nullable(...)/LowCardinality(...) wrappers are ignored.
func KindFromTypeName(typeName string) dataset.ColumnKind {
	typeName = strings.ToUpper(strings.TrimSpace(typeName))
	for unwrapped := true; unwrapped; {
		unwrapped = false
		for _, wrapper := range []string{"NULLABLE(", "LOWCARDINALITY("} {
			if strings.HasPrefix(typeName, wrapper) && strings.HasSuffix(typeName, ")") {
				typeName = typeName[len(wrapper) : len(typeName)-1]
				unwrapped = true
			}
		}
	}

	// Strips parameters, as in DECIMAL(10, 2) or DOUBLE PRECISION.
	if end := strings.IndexAny(typeName, "( "); end != -1 {
		typeName = typeName[:end]
	}

	if numericTypePattern.MatchString(typeName) {
		return dataset.ColumnKindNumeric
	}
	return dataset.ColumnKindCategorical
}

var numericTypePattern = regexp.MustCompile(
	`^(U?INT(EGER)?[0-9]*|U?(TINY|SMALL|MEDIUM|BIG|HUGE)INT|FLOAT[0-9]*|DOUBLE|REAL|DECIMAL[0-9]*|NUMERIC)$`,
)

// AppendValue converts a value scanned from a database and appends it to the given builder
// column. Nil values and nil pointers become nulls.
func AppendValue(builder *dataset.Builder, column int, value any) error {
	value, isNull := dereference(value)
	if isNull {
		builder.AppendNull(column)
		return nil
	}

	switch kind := builder.Schema().Columns[column].Kind; kind {
	case dataset.ColumnKindNumeric:
		number, err := toNumber(value)
		if err != nil {
			return err
		}
		return builder.AppendNumber(column, number)
	case dataset.ColumnKindCategorical:
		return builder.AppendText(column, toText(value))
	default:
		return fmt.Errorf("invalid column kind %v", kind)
	}
}

func dereference(value any) (dereferenced any, isNull bool) {
	if value == nil {
		return nil, true
	}

	reflected := reflect.ValueOf(value)
	for reflected.Kind() == reflect.Pointer || reflected.Kind() == reflect.Interface {
		if reflected.IsNil() {
			return nil, true
		}
		// Pointer types with their own conversions are kept as they are.
		if _, ok := reflected.Interface().(*big.Int); ok {
			return reflected.Interface(), false
		}
		reflected = reflected.Elem()
	}
	return reflected.Interface(), false
}

func toNumber(value any) (float64, error) {
	switch value := value.(type) {
	case *big.Int:
		number, _ := value.Float64()
		return number, nil
	case interface{ InexactFloat64() float64 }:
		return value.InexactFloat64(), nil
	case interface{ Float64() float64 }:
		return value.Float64(), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(value), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(value)), 64)
	}

	reflected := reflect.ValueOf(value)
	switch reflected.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(reflected.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(reflected.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return reflected.Float(), nil
	case reflect.Bool:
		if reflected.Bool() {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert value of type %T to number", value)
	}
}

func toText(value any) string {
	switch value := value.(type) {
	case string:
		return value
	case []byte:
		return string(value)
	case time.Time:
		return value.Format(time.RFC3339)
	case fmt.Stringer:
		return value.String()
	default:
		return fmt.Sprint(value)
	}
}
