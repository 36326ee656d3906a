package dataset

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"hermannm.dev/wrap"
)

// Builder accumulates column values and produces a Dataset. A Builder is not safe for concurrent
// use.
type Builder struct {
	schema   Schema
	columns  []columnBuilder
	released bool
}

type columnBuilder struct {
	kind    ColumnKind
	texts   *array.StringBuilder
	numbers *array.Float64Builder
}

func NewBuilder(schema Schema) (*Builder, error) {
	if len(schema.Columns) == 0 {
		return nil, errors.New("dataset must have at least one column")
	}
	if errs := schema.Validate(); len(errs) != 0 {
		return nil, wrap.Errors("invalid dataset schema", errs...)
	}

	builder := &Builder{schema: schema, columns: make([]columnBuilder, len(schema.Columns))}
	for i, descriptor := range schema.Columns {
		column := columnBuilder{kind: descriptor.Kind}
		switch descriptor.Kind {
		case ColumnKindCategorical:
			column.texts = array.NewStringBuilder(memory.DefaultAllocator)
		case ColumnKindNumeric:
			column.numbers = array.NewFloat64Builder(memory.DefaultAllocator)
		}
		builder.columns[i] = column
	}

	return builder, nil
}

// NewFromRows builds a Dataset from row-major values. Each value must be nil (null), a string
// (categorical columns), or a float64/int/int64 (numeric columns).
func NewFromRows(schema Schema, rows [][]any) (*Dataset, error) {
	builder, err := NewBuilder(schema)
	if err != nil {
		return nil, err
	}
	defer builder.Release()

	for rowIndex, row := range rows {
		if err := builder.AppendRow(row); err != nil {
			return nil, wrap.Errorf(err, "failed to append row %d", rowIndex+1)
		}
	}

	return builder.Build()
}

func (builder *Builder) Schema() Schema {
	return builder.schema
}

func (builder *Builder) AppendRow(row []any) error {
	if len(row) != len(builder.columns) {
		return fmt.Errorf(
			"row has %d fields, but dataset has %d columns", len(row), len(builder.columns),
		)
	}

	for i, value := range row {
		if err := builder.AppendValue(i, value); err != nil {
			return wrap.Errorf(err, "invalid value for column '%s'", builder.schema.Columns[i].Name)
		}
	}

	return nil
}

func (builder *Builder) AppendValue(column int, value any) error {
	switch value := value.(type) {
	case nil:
		builder.AppendNull(column)
		return nil
	case string:
		return builder.AppendText(column, value)
	case float64:
		return builder.AppendNumber(column, value)
	case float32:
		return builder.AppendNumber(column, float64(value))
	case int:
		return builder.AppendNumber(column, float64(value))
	case int64:
		return builder.AppendNumber(column, float64(value))
	default:
		return fmt.Errorf("unsupported value type %T", value)
	}
}

func (builder *Builder) AppendText(column int, value string) error {
	target := builder.columns[column]
	if target.kind != ColumnKindCategorical {
		return fmt.Errorf("cannot append text value to %v column", target.kind)
	}

	target.texts.Append(value)
	return nil
}

func (builder *Builder) AppendNumber(column int, value float64) error {
	target := builder.columns[column]
	if target.kind != ColumnKindNumeric {
		return fmt.Errorf("cannot append numeric value to %v column", target.kind)
	}

	target.numbers.Append(value)
	return nil
}

func (builder *Builder) AppendNull(column int) {
	target := builder.columns[column]
	switch target.kind {
	case ColumnKindCategorical:
		target.texts.AppendNull()
	case ColumnKindNumeric:
		target.numbers.AppendNull()
	}
}

// Build finalizes the appended values into a Dataset with a single reference. The builder is
// reset, and may be reused for a new dataset with the same schema.
func (builder *Builder) Build() (*Dataset, error) {
	if builder.released {
		return nil, errors.New("dataset builder already released")
	}

	rows := builder.columns[0].len()
	for i, column := range builder.columns {
		if column.len() != rows {
			return nil, fmt.Errorf(
				"column '%s' has %d values, expected %d",
				builder.schema.Columns[i].Name,
				column.len(),
				rows,
			)
		}
	}

	dataset := &Dataset{
		schema:  builder.schema,
		columns: make([]*Column, len(builder.columns)),
		rows:    rows,
	}
	dataset.refs.Store(1)

	for i, column := range builder.columns {
		built := &Column{descriptor: builder.schema.Columns[i]}
		switch column.kind {
		case ColumnKindCategorical:
			built.texts = column.texts.NewStringArray()
		case ColumnKindNumeric:
			built.numbers = column.numbers.NewFloat64Array()
		}
		dataset.columns[i] = built
	}

	return dataset, nil
}

// Release frees values appended but not yet built. Safe to call after Build.
func (builder *Builder) Release() {
	if builder.released {
		return
	}
	builder.released = true

	for _, column := range builder.columns {
		if column.texts != nil {
			column.texts.Release()
		}
		if column.numbers != nil {
			column.numbers.Release()
		}
	}
}

func (column columnBuilder) len() int {
	if column.texts != nil {
		return column.texts.Len()
	}
	return column.numbers.Len()
}
