package cli

import (
	"text/tabwriter"

	"github.com/spf13/cobra"
	"hermannm.dev/safetab/dataset"
)

type SchemaOutput struct {
	RowCount int            `json:"rowCount" yaml:"rowCount"`
	Columns  []ColumnOutput `json:"columns" yaml:"columns"`
}

type ColumnOutput struct {
	Name         string             `json:"name" yaml:"name"`
	Kind         dataset.ColumnKind `json:"kind" yaml:"kind"`
	UniqueValues int                `json:"uniqueValues" yaml:"uniqueValues"`
}

func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <csv-file>",
		Short: "Show the variables of a CSV file and their deduced kinds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readDataset(args[0])
			if err != nil {
				return err
			}
			defer data.Release()

			output := SchemaOutput{RowCount: data.NumRows()}
			for _, column := range data.Columns() {
				output.Columns = append(output.Columns, ColumnOutput{
					Name:         column.Name(),
					Kind:         column.Kind(),
					UniqueValues: column.DistinctCount(),
				})
			}

			return writeOutput(
				cmd.OutOrStdout(),
				rootOpts.Format,
				output,
				func(table *tabwriter.Writer) error {
					header := []string{"VARIABLE", "KIND", "UNIQUE VALUES"}
					if err := writeTableRow(table, header); err != nil {
						return err
					}
					for _, column := range output.Columns {
						err := writeTableRow(
							table, []any{column.Name, column.Kind, column.UniqueValues},
						)
						if err != nil {
							return err
						}
					}
					return nil
				},
			)
		},
	}
}
