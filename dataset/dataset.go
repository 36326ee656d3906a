package dataset

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Dataset is an immutable snapshot of a table: an ordered set of named, equal-length, nullable
// columns. A Dataset starts with one reference, held by whoever built it. Readers that may
// outlive the owner's reference must call Retain, and Release when done; the column memory is
// freed when the last reference is released.
type Dataset struct {
	schema  Schema
	columns []*Column
	rows    int
	refs    atomic.Int64
}

// Column is a single column of a Dataset. Categorical columns are backed by an Arrow string
// array, numeric columns by an Arrow float64 array; nulls come from the array's validity bitmap.
type Column struct {
	descriptor ColumnDescriptor
	texts      *array.String
	numbers    *array.Float64
}

func (dataset *Dataset) Schema() Schema {
	return dataset.schema
}

func (dataset *Dataset) NumRows() int {
	return dataset.rows
}

func (dataset *Dataset) NumColumns() int {
	return len(dataset.columns)
}

func (dataset *Dataset) Column(name string) (*Column, bool) {
	for _, column := range dataset.columns {
		if column.descriptor.Name == name {
			return column, true
		}
	}
	return nil, false
}

func (dataset *Dataset) Columns() []*Column {
	return dataset.columns
}

func (dataset *Dataset) Retain() {
	dataset.refs.Add(1)
}

func (dataset *Dataset) Release() {
	refs := dataset.refs.Add(-1)
	if refs > 0 {
		return
	}
	if refs < 0 {
		panic("dataset released more times than it was retained")
	}

	for _, column := range dataset.columns {
		column.array().Release()
	}
}

func (column *Column) Descriptor() ColumnDescriptor {
	return column.descriptor
}

func (column *Column) Name() string {
	return column.descriptor.Name
}

func (column *Column) Kind() ColumnKind {
	return column.descriptor.Kind
}

func (column *Column) Len() int {
	return column.array().Len()
}

func (column *Column) IsNull(row int) bool {
	return column.array().IsNull(row)
}

// IsMissing reports whether the row has no value. Database sources can give NaN in numeric
// columns, which counts as missing along with nulls.
func (column *Column) IsMissing(row int) bool {
	if column.IsNull(row) {
		return true
	}
	return column.numbers != nil && math.IsNaN(column.numbers.Value(row))
}

// Text returns the value at the given row of a categorical column. The result is undefined for
// null rows.
func (column *Column) Text(row int) string {
	return column.texts.Value(row)
}

// Number returns the value at the given row of a numeric column. The result is undefined for
// null rows.
func (column *Column) Number(row int) float64 {
	return column.numbers.Value(row)
}

// DistinctCount returns the number of unique non-missing values in the column.
func (column *Column) DistinctCount() int {
	switch column.descriptor.Kind {
	case ColumnKindCategorical:
		return countDistinct(column, column.Text)
	case ColumnKindNumeric:
		return countDistinct(column, column.Number)
	default:
		return 0
	}
}

func countDistinct[T comparable](column *Column, valueAt func(row int) T) int {
	seen := make(map[T]struct{})
	for row := 0; row < column.Len(); row++ {
		if column.IsMissing(row) {
			continue
		}
		seen[valueAt(row)] = struct{}{}
	}
	return len(seen)
}

func (column *Column) array() arrow.Array {
	if column.texts != nil {
		return column.texts
	}
	return column.numbers
}

func (column *Column) String() string {
	return fmt.Sprintf(
		"%s (%v, %d rows)", column.descriptor.Name, column.descriptor.Kind, column.Len(),
	)
}
