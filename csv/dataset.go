package csv

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"hermannm.dev/safetab/dataset"
	"hermannm.dev/wrap"
)

// Fields that mark a missing value, in addition to blank and whitespace-only fields.
var missingValueMarkers = []string{".", "NA", "NaN"}

// DeduceSchema reads the whole file, and deduces a column to be numeric if every non-missing
// field in it is a number, and categorical otherwise. Leaves the reader positioned after the
// header row.
func (reader *Reader) DeduceSchema() (schema dataset.Schema, err error) {
	if err := reader.ResetReadPosition(false); err != nil {
		return dataset.Schema{}, wrap.Error(err, "failed to reset CSV reader")
	}

	columnNames, err := reader.ReadHeaderRow()
	if err != nil {
		return dataset.Schema{}, wrap.Error(err, "failed to read CSV column names from header row")
	}

	nonNumeric := make([]bool, len(columnNames))
	dataRows := 0
	for {
		row, _, done, err := reader.ReadRow()
		if done {
			break
		}
		if err != nil {
			return dataset.Schema{}, wrap.Errorf(
				err, "failed to read row %d of CSV file", reader.currentRow,
			)
		}
		dataRows++

		for i, field := range row {
			if nonNumeric[i] || IsMissing(field) {
				continue
			}
			if _, ok := parseNumber(field); !ok {
				nonNumeric[i] = true
			}
		}
	}

	if dataRows == 0 {
		return dataset.Schema{}, errors.New("csv file has no data rows")
	}

	schema.Columns = make([]dataset.ColumnDescriptor, len(columnNames))
	for i, name := range columnNames {
		kind := dataset.ColumnKindNumeric
		if nonNumeric[i] {
			kind = dataset.ColumnKindCategorical
		}
		schema.Columns[i] = dataset.ColumnDescriptor{Name: name, Kind: kind}
	}

	if err := reader.ResetReadPosition(true); err != nil {
		return dataset.Schema{}, wrap.Error(err, "failed to reset CSV reader after deducing schema")
	}

	return schema, nil
}

// ReadDataset deduces the schema of the file, then loads all of its rows.
func (reader *Reader) ReadDataset() (*dataset.Dataset, error) {
	schema, err := reader.DeduceSchema()
	if err != nil {
		return nil, wrap.Error(err, "failed to deduce schema from CSV")
	}

	return reader.ReadDatasetWithSchema(schema)
}

// ReadDatasetWithSchema loads all rows of the file with the given schema, whose columns must
// match the header row. Missing values become nulls.
func (reader *Reader) ReadDatasetWithSchema(schema dataset.Schema) (*dataset.Dataset, error) {
	if err := reader.ResetReadPosition(false); err != nil {
		return nil, wrap.Error(err, "failed to reset CSV reader")
	}

	columnNames, err := reader.ReadHeaderRow()
	if err != nil {
		return nil, wrap.Error(err, "failed to read CSV column names from header row")
	}
	if len(columnNames) != len(schema.Columns) {
		return nil, fmt.Errorf(
			"csv file has %d columns, but schema has %d", len(columnNames), len(schema.Columns),
		)
	}
	for i, name := range columnNames {
		if schema.Columns[i].Name != name {
			return nil, fmt.Errorf(
				"csv column %d is named '%s', but schema expects '%s'",
				i+1, name, schema.Columns[i].Name,
			)
		}
	}

	builder, err := dataset.NewBuilder(schema)
	if err != nil {
		return nil, err
	}
	defer builder.Release()

	for {
		row, rowNumber, done, err := reader.ReadRow()
		if done {
			break
		}
		if err != nil {
			return nil, wrap.Errorf(err, "failed to read row %d of CSV file", reader.currentRow)
		}

		if err := appendRow(builder, schema, row); err != nil {
			return nil, wrap.Errorf(err, "invalid value in row %d of CSV file", rowNumber)
		}
	}

	return builder.Build()
}

func appendRow(builder *dataset.Builder, schema dataset.Schema, row []string) error {
	for i, field := range row {
		column := schema.Columns[i]

		if IsMissing(field) {
			builder.AppendNull(i)
			continue
		}

		switch column.Kind {
		case dataset.ColumnKindCategorical:
			if err := builder.AppendText(i, field); err != nil {
				return err
			}
		case dataset.ColumnKindNumeric:
			number, ok := parseNumber(field)
			if !ok {
				return fmt.Errorf("expected number in column '%s', got '%s'", column.Name, field)
			}
			if err := builder.AppendNumber(i, number); err != nil {
				return err
			}
		}
	}

	return nil
}

// IsMissing reports whether a CSV field represents a missing value.
func IsMissing(field string) bool {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return true
	}
	for _, marker := range missingValueMarkers {
		if trimmed == marker {
			return true
		}
	}
	return false
}

// Infinities and other spellings of NaN are treated as text.
func parseNumber(field string) (float64, bool) {
	number, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil || math.IsInf(number, 0) || math.IsNaN(number) {
		return 0, false
	}
	return number, true
}
