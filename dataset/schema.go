package dataset

import (
	"errors"
	"fmt"
)

type ColumnDescriptor struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

type Schema struct {
	Columns []ColumnDescriptor `json:"columns"`
}

func (descriptor ColumnDescriptor) Validate() error {
	if descriptor.Name == "" {
		return errors.New("column name is blank")
	}

	if !descriptor.Kind.IsValid() {
		return errors.New("invalid column kind")
	}

	return nil
}

func (schema Schema) Validate() []error {
	var errs []error

	seen := make(map[string]struct{}, len(schema.Columns))
	for i, column := range schema.Columns {
		if err := column.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("column %d ('%s'): %w", i, column.Name, err))
			continue
		}

		if _, duplicate := seen[column.Name]; duplicate {
			errs = append(errs, fmt.Errorf("column %d: duplicate column name '%s'", i, column.Name))
		}
		seen[column.Name] = struct{}{}
	}

	return errs
}

// Implements command.ColumnSet.
func (schema Schema) HasColumn(name string) bool {
	_, ok := schema.Column(name)
	return ok
}

func (schema Schema) Column(name string) (ColumnDescriptor, bool) {
	for _, column := range schema.Columns {
		if column.Name == name {
			return column, true
		}
	}
	return ColumnDescriptor{}, false
}

func (schema Schema) Names() []string {
	names := make([]string, 0, len(schema.Columns))
	for _, column := range schema.Columns {
		names = append(names, column.Name)
	}
	return names
}
